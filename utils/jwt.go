package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/models"
)

// Token types stored in the typ claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID    uint        `json:"userId"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenType string      `json:"tokenType"`
	jwt.RegisteredClaims
}

// TokenPair is what every successful login, signup or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// GenerateToken issues a signed JWT of the given type for user.
func GenerateToken(user *models.User, tokenType string) (string, error) {
	cfg := config.Get()
	secret, ttl := cfg.JWTSecret, cfg.AccessTokenTTL
	if tokenType == TokenRefresh {
		secret, ttl = cfg.JWTRefreshSecret, cfg.RefreshTokenTTL
	}

	now := time.Now()
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// unique per token so a rotation inside the same second still changes it
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GenerateTokenPair issues an access and a refresh token for user.
func GenerateTokenPair(user *models.User) (TokenPair, error) {
	access, err := GenerateToken(user, TokenAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := GenerateToken(user, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccessToken validates an access token and returns its claims.
func ParseAccessToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, config.Get().JWTSecret, TokenAccess)
}

// ParseRefreshToken validates a refresh token and returns its claims.
func ParseRefreshToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, config.Get().JWTRefreshSecret, TokenRefresh)
}

func parseToken(tokenStr, secret, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
