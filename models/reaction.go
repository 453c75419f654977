package models

import "time"

// Reaction is a user's single sentiment on a post.
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	PostID    uint         `gorm:"not null;uniqueIndex:idx_reaction_post_user;index:idx_reaction_post_type" json:"postId"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reaction_post_user" json:"userId"`
	Type      ReactionType `gorm:"size:16;not null;index:idx_reaction_post_type" json:"type"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ReactionSummary aggregates a post's reactions by type.
type ReactionSummary struct {
	Counts map[ReactionType]int64 `json:"counts"`
	Total  int64                  `json:"total"`
	Mine   *Reaction              `json:"mine,omitempty"`
}

// NewReactionSummary returns a summary with every type present at zero.
func NewReactionSummary() *ReactionSummary {
	counts := make(map[ReactionType]int64, len(ReactionTypes))
	for _, t := range ReactionTypes {
		counts[t] = 0
	}
	return &ReactionSummary{Counts: counts}
}
