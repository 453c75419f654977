package models

import "time"

// DeletedCommentContent replaces the text of a tombstoned comment in responses.
const DeletedCommentContent = "삭제된 댓글입니다."

// Comment is a reply to a post, optionally nested one level under another comment.
type Comment struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PostID    uint          `gorm:"index;not null" json:"postId"`
	AuthorID  uint          `gorm:"index;not null" json:"authorId"`
	ParentID  *uint         `gorm:"index" json:"parentId"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	LikeCount int64         `gorm:"not null;default:0" json:"likeCount"`
	Status    CommentStatus `gorm:"size:16;not null;default:'active'" json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	IsDeleted bool         `gorm:"-" json:"isDeleted"`
	Author    *UserSummary `gorm:"-" json:"author,omitempty"`
	Replies   []*Comment   `gorm:"-" json:"replies,omitempty"`
}

// Deleted reports whether the comment has been tombstoned.
func (c *Comment) Deleted() bool {
	return c.Status == CommentDeleted
}

// Present prepares c for a response: derives isDeleted and hides tombstoned text.
func (c *Comment) Present() *Comment {
	c.IsDeleted = c.Deleted()
	if c.IsDeleted {
		c.Content = DeletedCommentContent
	}
	return c
}
