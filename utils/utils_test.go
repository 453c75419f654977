package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/models"
)

func TestTokenPair(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "utils-secret", AccessTokenTTL: time.Minute})
	user := &models.User{ID: 3, Email: "t@example.com", Role: models.RoleMentee}

	pair, err := GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != 3 || claims.Role != models.RoleMentee || claims.TokenType != TokenAccess || claims.ID == "" {
		t.Fatalf("claims: %+v", claims)
	}
	if _, err := ParseRefreshToken(pair.AccessToken); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
	if _, err := ParseAccessToken(pair.RefreshToken); err == nil {
		t.Fatal("refresh token accepted as access token")
	}

	again, _ := GenerateTokenPair(user)
	if again.RefreshToken == pair.RefreshToken {
		t.Fatal("tokens issued in the same second must differ")
	}

	config.Set(config.AppConfig{JWTSecret: "other-secret"})
	if _, err := ParseAccessToken(pair.AccessToken); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "secret123") || CheckPassword(hash, "secret124") {
		t.Fatal("password check mismatch")
	}
	if RandomPassword() == RandomPassword() {
		t.Fatal("random passwords repeat")
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize(` <p onclick="x()">안녕</p><script>alert(1)</script> `); got != "<p>안녕</p>" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizePlain("<b>김 선생</b> & co"); got != "김 선생 & co" {
		t.Fatalf("SanitizePlain = %q", got)
	}
	if got := SanitizeList([]string{" 학생지도 ", "", "<i>태그</i>"}); len(got) != 2 || got[1] != "태그" {
		t.Fatalf("SanitizeList = %q", got)
	}
}

func TestMemoryFallbacks(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "utils-secret"})
	ctx := context.Background()

	BlacklistToken(ctx, "jti-1", time.Now().Add(time.Minute))
	if !IsTokenBlacklisted(ctx, "jti-1") || IsTokenBlacklisted(ctx, "jti-2") {
		t.Fatal("blacklist lookup wrong")
	}
	BlacklistToken(ctx, "jti-old", time.Now().Add(-time.Second))
	if IsTokenBlacklisted(ctx, "jti-old") {
		t.Fatal("expired entry still blacklisted")
	}

	SaveState(ctx, "state-1", time.Minute)
	if !ConsumeState(ctx, "state-1") {
		t.Fatal("saved state not accepted")
	}
	if ConsumeState(ctx, "state-1") {
		t.Fatal("state consumed twice")
	}
}

func TestLocalCache(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "utils-secret"})
	ctx := context.Background()
	CacheSetJSON(ctx, "posts:list:a", []int{1, 2}, time.Minute)
	CacheSetJSON(ctx, "posts:list:b", []int{3}, time.Minute)
	CacheSetJSON(ctx, "other:c", "x", time.Minute)

	var got []int
	if !CacheGetJSON(ctx, "posts:list:a", &got) || len(got) != 2 {
		t.Fatalf("cache hit = %v", got)
	}
	InvalidateByPrefix(ctx, "posts:list:")
	if CacheGetJSON(ctx, "posts:list:b", &got) {
		t.Fatal("invalidated key still cached")
	}
	var s string
	if !CacheGetJSON(ctx, "other:c", &s) || s != "x" {
		t.Fatal("unrelated key was invalidated")
	}

	localCache.put("short", []byte(`1`), -time.Second)
	var n int
	if CacheGetJSON(ctx, "short", &n) {
		t.Fatal("expired entry returned")
	}
}

func TestRoomHubLocal(t *testing.T) {
	hub := NewRoomHub(nil)
	hub.Start(context.Background())
	defer hub.Stop()

	a := hub.Subscribe(1)
	b := hub.Subscribe(1)
	other := hub.Subscribe(2)
	if hub.Subscribers(1) != 2 {
		t.Fatalf("subscribers = %d", hub.Subscribers(1))
	}

	data, _ := json.Marshal(map[string]string{"content": "hi"})
	hub.Publish(context.Background(), RoomEvent{Type: EventNewMessage, RoomID: 1, UserID: 9, Data: data})
	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			if ev.Type != EventNewMessage || ev.UserID != 9 {
				t.Fatalf("event = %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	select {
	case ev := <-other.C:
		t.Fatalf("room 2 received %+v", ev)
	default:
	}

	hub.Unsubscribe(a)
	hub.Unsubscribe(a)
	if _, ok := <-a.C; ok {
		t.Fatal("unsubscribed channel still open")
	}
	if hub.Subscribers(1) != 1 {
		t.Fatalf("subscribers after unsubscribe = %d", hub.Subscribers(1))
	}

	// a full buffer drops events instead of blocking the publisher
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(context.Background(), RoomEvent{Type: EventNewMessage, RoomID: 2})
	}
	if n := len(other.C); n != subscriberBuffer {
		t.Fatalf("buffered = %d, want %d", n, subscriberBuffer)
	}

	hub.Stop()
	if _, ok := <-b.C; ok {
		t.Fatal("stop should close subscriber channels")
	}
}

func TestRoomFromChannel(t *testing.T) {
	if got := roomFromChannel("chat:room:42"); got != 42 {
		t.Fatalf("roomFromChannel = %d", got)
	}
	if got := roomFromChannel("chat:room:x"); got != 0 {
		t.Fatalf("roomFromChannel garbage = %d", got)
	}
}

func TestFail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name       string
		env        string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"app error", "development", NotFound("없음"), http.StatusNotFound, CodeNotFound, "없음"},
		{"wrapped app error", "development", fmt.Errorf("load: %w", Conflict(CodeAlreadyLiked, "이미")), http.StatusConflict, CodeAlreadyLiked, "이미"},
		{"internal in development", "development", errors.New("disk full"), http.StatusInternalServerError, CodeInternal, "disk full"},
		{"internal in production", "production", errors.New("disk full"), http.StatusInternalServerError, CodeInternal, "서버 오류가 발생했습니다."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config.Set(config.AppConfig{JWTSecret: "x", AppEnv: tc.env})
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
			Fail(ctx, tc.err)

			var body JSONResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if w.Code != tc.wantStatus || body.Success || body.Error == nil {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if body.Error.Code != tc.wantCode || body.Error.Message != tc.wantMsg {
				t.Fatalf("error = %+v", body.Error)
			}
		})
	}
}
