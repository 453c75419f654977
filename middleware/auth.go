package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/utils"
)

// Keys set on the gin context for authenticated requests.
const (
	ContextUserIDKey   = "userID"
	ContextEmailKey    = "email"
	ContextRoleKey     = "role"
	ContextTokenIDKey  = "jti"
	ContextTokenExpKey = "tokenExp"
)

// bearerClaims validates the Authorization header. It returns nil claims
// without an error when no header was sent.
func bearerClaims(ctx *gin.Context) (*utils.Claims, error) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, utils.Unauthorized("Authorization 헤더 형식이 올바르지 않습니다.")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, utils.Unauthorized("토큰이 비어 있습니다.")
	}
	claims, err := utils.ParseAccessToken(tokenString)
	if err != nil {
		return nil, utils.NewError(http.StatusUnauthorized, utils.CodeInvalidToken, "유효하지 않은 토큰입니다.")
	}
	if utils.IsTokenBlacklisted(ctx.Request.Context(), claims.ID) {
		return nil, utils.NewError(http.StatusUnauthorized, utils.CodeInvalidToken, "로그아웃된 토큰입니다.")
	}
	return claims, nil
}

func setClaims(ctx *gin.Context, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextEmailKey, claims.Email)
	ctx.Set(ContextRoleKey, claims.Role)
	ctx.Set(ContextTokenIDKey, claims.ID)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpKey, claims.ExpiresAt.Time)
	}
}

// AuthRequired ensures the request carries a valid, unrevoked access token.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, err := bearerClaims(ctx)
		if err == nil && claims == nil {
			err = utils.Unauthorized("로그인이 필요합니다.")
		}
		if err != nil {
			utils.Abort(ctx, err)
			return
		}
		setClaims(ctx, claims)
		ctx.Next()
	}
}

// OptionalAuth identifies the caller when a token is present and lets anonymous requests through.
// A malformed or revoked token is still rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, err := bearerClaims(ctx)
		if err != nil {
			utils.Abort(ctx, err)
			return
		}
		if claims != nil {
			setClaims(ctx, claims)
		}
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id, or 0 for anonymous requests.
func CurrentUserID(ctx *gin.Context) uint {
	return ctx.GetUint(ContextUserIDKey)
}

// CurrentRole returns the role claim of the caller.
func CurrentRole(ctx *gin.Context) models.Role {
	role, _ := ctx.Get(ContextRoleKey)
	r, _ := role.(models.Role)
	return r
}

// CurrentToken returns the jti and expiry of the presented access token.
func CurrentToken(ctx *gin.Context) (jti string, expiresAt time.Time) {
	return ctx.GetString(ContextTokenIDKey), ctx.GetTime(ContextTokenExpKey)
}
