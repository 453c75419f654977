package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post is a question or story shared with the community.
type Post struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	Title        string                      `gorm:"size:200;not null" json:"title"`
	Content      string                      `gorm:"type:text;not null" json:"content"`
	AuthorID     uint                        `gorm:"index;not null" json:"authorId"`
	Category     Category                    `gorm:"size:32;index;not null" json:"category"`
	TeacherLevel TeacherLevel                `gorm:"size:16;default:'초등학교'" json:"teacherLevel"`
	ViewCount    int64                       `gorm:"not null;default:0" json:"viewCount"`
	LikeCount    int64                       `gorm:"not null;default:0" json:"likeCount"`
	CommentCount int64                       `gorm:"not null;default:0" json:"commentCount"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	IsAnswered   bool                        `gorm:"index;default:false" json:"isAnswered"`
	IsHot        bool                        `gorm:"default:false" json:"isHot"`
	IsPinned     bool                        `gorm:"default:false" json:"isPinned"`
	Images       datatypes.JSONSlice[string] `json:"images"`
	CreatedAt    time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`

	Author    *UserSummary     `gorm:"-" json:"author,omitempty"`
	Reactions *ReactionSummary `gorm:"-" json:"reactions,omitempty"`
}

// Counter names a Post column that is only ever changed by atomic increments.
type Counter string

const (
	CounterViews    Counter = "view_count"
	CounterLikes    Counter = "like_count"
	CounterComments Counter = "comment_count"
)
