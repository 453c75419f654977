package models

import "time"

// Like records a single user's like on a post or comment.
type Like struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_like_target_user" json:"targetId"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:idx_like_target_user" json:"targetType"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_like_target_user;index" json:"userId"`
	CreatedAt  time.Time  `json:"createdAt"`
}
