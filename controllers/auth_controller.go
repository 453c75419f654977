package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/middleware"
	"github.com/ssaemtalk/server/services"
	"github.com/ssaemtalk/server/utils"
)

// AuthController handles credential, social and token endpoints.
type AuthController struct {
	auth  *services.AuthService
	oauth *services.OAuthService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth *services.AuthService, oauth *services.OAuthService) *AuthController {
	return &AuthController{auth: auth, oauth: oauth}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Signup registers a credential account.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req services.SignupInput
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := a.auth.Signup(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, res)
}

// Login checks email and password and returns a fresh token pair.
func (a *AuthController) Login(ctx *gin.Context) {
	var req services.LoginInput
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := a.auth.Login(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// SocialLogin upserts the account behind a provider identity.
func (a *AuthController) SocialLogin(ctx *gin.Context) {
	var req services.SocialLoginInput
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := a.auth.SocialLogin(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// CompleteSocialSignup finishes the profile of an account created by social login.
func (a *AuthController) CompleteSocialSignup(ctx *gin.Context) {
	var req services.CompleteSocialSignupInput
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := a.auth.CompleteSocialSignup(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Refresh rotates the token pair.
func (a *AuthController) Refresh(ctx *gin.Context) {
	var req refreshRequest
	if !bindJSON(ctx, &req) {
		return
	}
	tokens, err := a.auth.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"tokens": tokens})
}

// Logout clears the refresh token and revokes the presented access token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	jti, exp := middleware.CurrentToken(ctx)
	if err := a.auth.Logout(ctx.Request.Context(), middleware.CurrentUserID(ctx), jti, exp); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Message(ctx, "로그아웃되었습니다.")
}

// Profile returns the authenticated user.
func (a *AuthController) Profile(ctx *gin.Context) {
	user, err := a.auth.Profile(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile edits the authenticated user's profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req services.UpdateProfileInput
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.auth.UpdateProfile(ctx.Request.Context(), middleware.CurrentUserID(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	url, state, err := a.oauth.AuthURL(ctx.Request.Context(), ctx.Param("provider"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"authorizationUrl": url, "state": state})
}

// OAuthCallback exchanges the authorization code for an identity and issues tokens.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	res, err := a.oauth.Callback(ctx.Request.Context(), ctx.Param("provider"), ctx.Query("code"), ctx.Query("state"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}
