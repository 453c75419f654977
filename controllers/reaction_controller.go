package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/middleware"
	"github.com/ssaemtalk/server/services"
	"github.com/ssaemtalk/server/utils"
)

// ReactionController handles post reactions.
type ReactionController struct {
	reactions *services.ReactionService
}

// NewReactionController creates a new ReactionController instance.
func NewReactionController(reactions *services.ReactionService) *ReactionController {
	return &ReactionController{reactions: reactions}
}

// Summary returns per-type counts and, for signed-in callers, their own reaction.
func (r *ReactionController) Summary(ctx *gin.Context) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	summary, err := r.reactions.Summary(ctx.Request.Context(), postID, middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, summary)
}

// AddReaction answers 201 for a new reaction and 200 when the type was replaced.
func (r *ReactionController) AddReaction(ctx *gin.Context) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req services.AddReactionInput
	if !bindJSON(ctx, &req) {
		return
	}
	res, created, err := r.reactions.Add(ctx.Request.Context(), postID, middleware.CurrentUserID(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if created {
		utils.Created(ctx, res)
		return
	}
	utils.Success(ctx, res)
}

// RemoveReaction deletes the caller's own reaction.
func (r *ReactionController) RemoveReaction(ctx *gin.Context) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	reactionID, ok := paramID(ctx, "reactionId")
	if !ok {
		return
	}
	if err := r.reactions.Remove(ctx.Request.Context(), postID, reactionID, middleware.CurrentUserID(ctx)); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Message(ctx, "반응이 삭제되었습니다.")
}
