package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/middleware"
	"github.com/ssaemtalk/server/services"
	"github.com/ssaemtalk/server/utils"
)

// PostController exposes posts and post likes.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// ListPosts returns a filtered page of posts.
func (p *PostController) ListPosts(ctx *gin.Context) {
	var q services.PostQuery
	if !bindQuery(ctx, &q) {
		return
	}
	list, err := p.posts.List(ctx.Request.Context(), q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// SearchPosts matches q against title, content and tags.
func (p *PostController) SearchPosts(ctx *gin.Context) {
	var q services.PostQuery
	if !bindQuery(ctx, &q) {
		return
	}
	list, err := p.posts.Search(ctx.Request.Context(), q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// GetPost counts a view and returns the post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), id, middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req services.CreatePostInput
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.Create(ctx.Request.Context(), middleware.CurrentUserID(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// UpdatePost lets the author edit their post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req services.UpdatePostInput
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.Update(ctx.Request.Context(), id, middleware.CurrentUserID(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost lets the author remove their post with its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), id, middleware.CurrentUserID(ctx)); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Message(ctx, "게시글이 삭제되었습니다.")
}

// LikePost adds the caller's like to a post.
func (p *PostController) LikePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	res, err := p.posts.Like(ctx.Request.Context(), id, middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, utils.JSONResponse{Success: true, Data: res, Message: "좋아요를 눌렀습니다."})
}

// UnlikePost removes the caller's like from a post.
func (p *PostController) UnlikePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	res, err := p.posts.Unlike(ctx.Request.Context(), id, middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, utils.JSONResponse{Success: true, Data: res, Message: "좋아요를 취소했습니다."})
}
