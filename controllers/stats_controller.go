package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/services"
	"github.com/ssaemtalk/server/utils"
)

// StatsController provides community statistics.
type StatsController struct {
	stats *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// GetStats returns aggregate counters. Counters that cannot be read are reported as 0.
func (s *StatsController) GetStats(ctx *gin.Context) {
	utils.Success(ctx, s.stats.Get(ctx.Request.Context()))
}
