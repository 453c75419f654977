package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine() *gin.Engine {
	r := gin.New()
	handler := func(c *gin.Context) {
		utils.Success(c, gin.H{"userId": CurrentUserID(c), "role": CurrentRole(c)})
	}
	r.GET("/private", AuthRequired(), handler)
	r.GET("/public", OptionalAuth(), handler)
	return r
}

func get(r http.Handler, path, auth string) (*httptest.ResponseRecorder, utils.JSONResponse) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body utils.JSONResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthMiddleware(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "middleware-secret"})
	user := &models.User{ID: 7, Email: "t@example.com", Role: models.RoleMentor}
	pair, err := utils.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	r := authEngine()

	cases := []struct {
		name   string
		path   string
		auth   string
		status int
		code   string
	}{
		{"missing header", "/private", "", http.StatusUnauthorized, utils.CodeUnauthorized},
		{"bad scheme", "/private", "Token " + pair.AccessToken, http.StatusUnauthorized, utils.CodeUnauthorized},
		{"garbage token", "/private", "Bearer nope", http.StatusUnauthorized, utils.CodeInvalidToken},
		{"refresh token", "/private", "Bearer " + pair.RefreshToken, http.StatusUnauthorized, utils.CodeInvalidToken},
		{"valid", "/private", "Bearer " + pair.AccessToken, http.StatusOK, ""},
		{"anonymous optional", "/public", "", http.StatusOK, ""},
		{"bad optional", "/public", "Bearer nope", http.StatusUnauthorized, utils.CodeInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := get(r, tc.path, tc.auth)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.code != "" && (body.Error == nil || body.Error.Code != tc.code) {
				t.Fatalf("error = %+v, want %s", body.Error, tc.code)
			}
		})
	}

	_, body := get(r, "/private", "Bearer "+pair.AccessToken)
	data, _ := body.Data.(map[string]interface{})
	if data["userId"] != float64(7) || data["role"] != "mentor" {
		t.Fatalf("claims not propagated: %+v", body.Data)
	}

	claims, _ := utils.ParseAccessToken(pair.AccessToken)
	utils.BlacklistToken(context.Background(), claims.ID, time.Now().Add(time.Hour))
	if w, _ := get(r, "/private", "Bearer "+pair.AccessToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token accepted: %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(4)
	r := gin.New()
	r.GET("/", l.Handler(), func(c *gin.Context) { utils.Success(c, nil) })

	// burst is half the per-minute rate
	for i := 0; i < 2; i++ {
		if w, _ := get(r, "/", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d limited early: %d", i, w.Code)
		}
	}
	w, body := get(r, "/", "")
	if w.Code != http.StatusTooManyRequests || body.Error == nil || body.Error.Code != utils.CodeRateLimited {
		t.Fatalf("expected 429 RATE_LIMITED, got %d %s", w.Code, w.Body.String())
	}

	if !l.Allow("10.0.0.2") {
		t.Fatal("other client should have its own bucket")
	}
	if l.Clients() != 2 {
		t.Fatalf("clients = %d, want 2", l.Clients())
	}
}
