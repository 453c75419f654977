package services

import (
	"context"

	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

// CommunityStats is the body of GET /api/stats.
type CommunityStats struct {
	UserCount    int64 `json:"userCount"`
	MentorCount  int64 `json:"mentorCount"`
	MenteeCount  int64 `json:"menteeCount"`
	PostCount    int64 `json:"postCount"`
	CommentCount int64 `json:"commentCount"`
}

// StatsService reads community counters.
type StatsService struct {
	st store.Store
}

// NewStatsService creates a StatsService.
func NewStatsService(st store.Store) *StatsService {
	return &StatsService{st: st}
}

// Get never fails; counters the store cannot produce read as zero.
func (s *StatsService) Get(ctx context.Context) CommunityStats {
	stats, err := s.st.Stats(ctx)
	if err != nil {
		utils.Sugar.Warnf("stats: partial counters: %v", err)
	}
	return CommunityStats{
		UserCount:    stats.Users,
		MentorCount:  stats.Mentors,
		MenteeCount:  stats.Mentees,
		PostCount:    stats.Posts,
		CommentCount: stats.Comments,
	}
}
