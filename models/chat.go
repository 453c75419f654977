package models

import "time"

// ChatRoom is a private conversation between exactly two users.
// The pair is stored ordered (UserLowID < UserHighID) so it is unique.
type ChatRoom struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserLowID     uint      `gorm:"not null;uniqueIndex:idx_room_pair" json:"-"`
	UserHighID    uint      `gorm:"not null;uniqueIndex:idx_room_pair;index" json:"-"`
	LastMessageID *uint     `json:"lastMessageId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `gorm:"index" json:"updatedAt"`

	Participants []*UserSummary `gorm:"-" json:"participants"`
	LastMessage  *ChatMessage   `gorm:"-" json:"lastMessage,omitempty"`
	UnreadCount  int64          `gorm:"-" json:"unreadCount"`
}

// RoomPair orders two user ids the way ChatRoom stores them.
func RoomPair(a, b uint) (low, high uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether userID is one of the two room members.
func (r *ChatRoom) HasParticipant(userID uint) bool {
	return r.UserLowID == userID || r.UserHighID == userID
}

// Other returns the member that is not userID.
func (r *ChatRoom) Other(userID uint) uint {
	if r.UserLowID == userID {
		return r.UserHighID
	}
	return r.UserLowID
}

// ChatMessage is a single message inside a room.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;index:idx_msg_room_created" json:"roomId"`
	SenderID  uint      `gorm:"not null;index" json:"senderId"`
	Content   string    `gorm:"size:1000;not null" json:"content"`
	IsDeleted bool      `gorm:"default:false" json:"isDeleted"`
	CreatedAt time.Time `gorm:"index:idx_msg_room_created" json:"createdAt"`

	Sender *UserSummary  `gorm:"-" json:"sender,omitempty"`
	ReadBy []ReadReceipt `gorm:"-" json:"readBy"`
}

// ReadReceipt marks that a user has seen a message.
type ReadReceipt struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_receipt_msg_user" json:"-"`
	RoomID    uint      `gorm:"not null;index" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_receipt_msg_user" json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}
