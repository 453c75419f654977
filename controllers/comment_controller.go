package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/middleware"
	"github.com/ssaemtalk/server/services"
	"github.com/ssaemtalk/server/utils"
)

// CommentController exposes the comment thread of a post.
type CommentController struct {
	comments *services.CommentService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

// ListComments returns the comment thread of a post.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	thread, err := c.comments.List(ctx.Request.Context(), postID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, thread)
}

// CreateComment allows authenticated users to comment on posts.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req services.CreateCommentInput
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.comments.Create(ctx.Request.Context(), postID, middleware.CurrentUserID(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, comment)
}

// commentIDs reads the post and comment ids of nested routes.
func commentIDs(ctx *gin.Context) (postID, commentID uint, ok bool) {
	if postID, ok = paramID(ctx, "id"); !ok {
		return
	}
	commentID, ok = paramID(ctx, "commentId")
	return
}

// UpdateComment lets the author edit their comment.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	postID, commentID, ok := commentIDs(ctx)
	if !ok {
		return
	}
	var req services.UpdateCommentInput
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.comments.Update(ctx.Request.Context(), postID, commentID, middleware.CurrentUserID(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// DeleteComment tombstones the comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	postID, commentID, ok := commentIDs(ctx)
	if !ok {
		return
	}
	if err := c.comments.Delete(ctx.Request.Context(), postID, commentID, middleware.CurrentUserID(ctx)); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Message(ctx, "댓글이 삭제되었습니다.")
}

// LikeComment adds the caller's like to a comment.
func (c *CommentController) LikeComment(ctx *gin.Context) {
	postID, commentID, ok := commentIDs(ctx)
	if !ok {
		return
	}
	res, err := c.comments.Like(ctx.Request.Context(), postID, commentID, middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, utils.JSONResponse{Success: true, Data: res, Message: "좋아요를 눌렀습니다."})
}

// UnlikeComment removes the caller's like from a comment.
func (c *CommentController) UnlikeComment(ctx *gin.Context) {
	postID, commentID, ok := commentIDs(ctx)
	if !ok {
		return
	}
	res, err := c.comments.Unlike(ctx.Request.Context(), postID, commentID, middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, utils.JSONResponse{Success: true, Data: res, Message: "좋아요를 취소했습니다."})
}
