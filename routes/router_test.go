package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/store/memstore"
	"github.com/ssaemtalk/server/utils"
)

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Message string           `json:"message"`
	Error   *utils.ErrorBody `json:"error"`
}

type authData struct {
	User struct {
		ID   uint   `json:"id"`
		Type string `json:"type"`
	} `json:"user"`
	Tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
	IsNewUser bool `json:"isNewUser"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	config.Set(config.AppConfig{
		JWTSecret:          "router-secret",
		GinMode:            "test",
		RateLimitPerMinute: 10000,
		// every test gets a fresh store, so a shared list cache would leak between them
		PostListCacheSeconds: -1,
	})
	hub := utils.NewRoomHub(nil)
	hub.Start(context.Background())
	t.Cleanup(hub.Stop)
	return SetupRouter(memstore.New(), hub)
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func decode(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func signupUser(t *testing.T, r http.Handler, email, role string) authData {
	t.Helper()
	body := gin.H{"name": "선생님", "email": email, "password": "secret123", "type": role}
	if role == "mentor" {
		body["teacherType"] = "고등학교"
	}
	status, env := call(t, r, http.MethodPost, "/api/auth/signup", "", body)
	if status != http.StatusCreated {
		t.Fatalf("signup %s: %d %+v", email, status, env.Error)
	}
	var res authData
	decode(t, env, &res)
	return res
}

func createPost(t *testing.T, r http.Handler, token string) uint {
	t.Helper()
	status, env := call(t, r, http.MethodPost, "/api/posts", token, gin.H{
		"title":    "첫 담임 학급 운영",
		"content":  "학급 규칙은 어떻게 정하나요?",
		"category": "학생지도",
	})
	if status != http.StatusCreated {
		t.Fatalf("create post: %d %+v", status, env.Error)
	}
	var post struct {
		ID uint `json:"id"`
	}
	decode(t, env, &post)
	return post.ID
}

func wantError(t *testing.T, status int, env envelope, wantStatus int, code string) {
	t.Helper()
	if status != wantStatus || env.Success || env.Error == nil || env.Error.Code != code {
		t.Fatalf("got %d %+v, want %d %s", status, env.Error, wantStatus, code)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	r := newTestRouter(t)

	status, env := call(t, r, http.MethodGet, "/health", "", nil)
	var health struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	decode(t, env, &health)
	if status != http.StatusOK || !env.Success || health.Status != "ok" || health.Timestamp == "" {
		t.Fatalf("health: %d %+v", status, health)
	}

	status, env = call(t, r, http.MethodGet, "/api/nothing-here", "", nil)
	wantError(t, status, env, http.StatusNotFound, utils.CodeNotFound)
}

func TestAuthFlow(t *testing.T) {
	r := newTestRouter(t)

	status, env := call(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{"name": "a", "password": "x"})
	wantError(t, status, env, http.StatusBadRequest, utils.CodeValidation)
	status, env = call(t, r, http.MethodPost, "/api/auth/signup", "", "{not json")
	wantError(t, status, env, http.StatusBadRequest, utils.CodeValidation)

	user := signupUser(t, r, "a@example.com", "mentee")
	if user.User.Type != "mentee" || user.Tokens.AccessToken == "" {
		t.Fatalf("signup payload: %+v", user)
	}
	status, env = call(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{"name": "중복", "email": "a@example.com", "password": "secret123", "type": "mentee"})
	wantError(t, status, env, http.StatusConflict, utils.CodeEmailTaken)

	status, env = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@example.com", "password": "wrong-pass"})
	wantError(t, status, env, http.StatusUnauthorized, utils.CodeInvalidCredentials)
	status, env = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@example.com", "password": "secret123"})
	if status != http.StatusOK {
		t.Fatalf("login: %d %+v", status, env.Error)
	}
	var login authData
	decode(t, env, &login)

	status, env = call(t, r, http.MethodGet, "/api/auth/profile", "", nil)
	wantError(t, status, env, http.StatusUnauthorized, utils.CodeUnauthorized)
	status, env = call(t, r, http.MethodGet, "/api/auth/profile", login.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("profile: %d %+v", status, env.Error)
	}
	status, env = call(t, r, http.MethodPatch, "/api/auth/profile", login.Tokens.AccessToken, gin.H{"bio": "초등 3학년 담임"})
	if status != http.StatusOK || !strings.Contains(string(env.Data), "초등 3학년 담임") {
		t.Fatalf("update profile: %d %s", status, env.Data)
	}

	status, env = call(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": "bogus"})
	wantError(t, status, env, http.StatusUnauthorized, utils.CodeInvalidToken)
	status, env = call(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": login.Tokens.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh: %d %+v", status, env.Error)
	}
	var rotated authData
	decode(t, env, &rotated)
	if rotated.Tokens.RefreshToken == "" || rotated.Tokens.RefreshToken == login.Tokens.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}
	status, env = call(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": login.Tokens.RefreshToken})
	wantError(t, status, env, http.StatusUnauthorized, utils.CodeInvalidToken)

	status, env = call(t, r, http.MethodPost, "/api/auth/logout", rotated.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("logout: %d %+v", status, env.Error)
	}
	status, env = call(t, r, http.MethodGet, "/api/auth/profile", rotated.Tokens.AccessToken, nil)
	wantError(t, status, env, http.StatusUnauthorized, utils.CodeInvalidToken)
}

func TestSocialLogin(t *testing.T) {
	r := newTestRouter(t)

	status, env := call(t, r, http.MethodPost, "/api/auth/social-login", "", gin.H{"provider": "google", "email": "s@example.com", "name": "소셜"})
	if status != http.StatusOK {
		t.Fatalf("social login: %d %+v", status, env.Error)
	}
	var res authData
	decode(t, env, &res)
	if !res.IsNewUser || res.User.Type != "mentee" {
		t.Fatalf("placeholder account: %+v", res)
	}
	status, env = call(t, r, http.MethodPost, "/api/auth/complete-social-signup", "", gin.H{"email": "s@example.com", "type": "mentor", "teacherType": "중학교"})
	if status != http.StatusOK {
		t.Fatalf("complete: %d %+v", status, env.Error)
	}
	decode(t, env, &res)
	if res.User.Type != "mentor" {
		t.Fatalf("role not updated: %+v", res.User)
	}

	signupUser(t, r, "local@example.com", "mentor")
	status, env = call(t, r, http.MethodPost, "/api/auth/complete-social-signup", "", gin.H{"email": "local@example.com", "type": "mentee", "name": "다른 사람"})
	wantError(t, status, env, http.StatusNotFound, utils.CodeNotFound)

	status, env = call(t, r, http.MethodGet, "/api/auth/oauth/kakao/login", "", nil)
	wantError(t, status, env, http.StatusBadRequest, utils.CodeValidation)
}

func TestAnsweredAndLikeScenario(t *testing.T) {
	r := newTestRouter(t)
	a := signupUser(t, r, "a@example.com", "mentee")
	postID := createPost(t, r, a.Tokens.AccessToken)
	b := signupUser(t, r, "b@example.com", "mentor")
	postPath := fmt.Sprintf("/api/posts/%d", postID)

	status, env := call(t, r, http.MethodPost, postPath+"/comments", "", gin.H{"content": "익명"})
	wantError(t, status, env, http.StatusUnauthorized, utils.CodeUnauthorized)
	status, env = call(t, r, http.MethodPost, postPath+"/comments", b.Tokens.AccessToken, gin.H{"content": "학기 초에 함께 정해보세요"})
	if status != http.StatusCreated {
		t.Fatalf("comment: %d %+v", status, env.Error)
	}

	var post struct {
		IsAnswered   bool  `json:"isAnswered"`
		CommentCount int64 `json:"commentCount"`
		ViewCount    int64 `json:"viewCount"`
	}
	status, env = call(t, r, http.MethodGet, postPath, "", nil)
	decode(t, env, &post)
	if status != http.StatusOK || !post.IsAnswered || post.CommentCount != 1 {
		t.Fatalf("post after mentor comment: %d %+v", status, post)
	}
	_, env = call(t, r, http.MethodGet, postPath, "", nil)
	decode(t, env, &post)
	if post.ViewCount != 2 {
		t.Fatalf("viewCount = %d, want 2", post.ViewCount)
	}

	var like struct {
		LikeCount int64 `json:"likeCount"`
	}
	status, env = call(t, r, http.MethodPost, postPath+"/like", a.Tokens.AccessToken, nil)
	decode(t, env, &like)
	if status != http.StatusOK || like.LikeCount != 1 {
		t.Fatalf("like: %d %+v", status, like)
	}
	status, env = call(t, r, http.MethodPost, postPath+"/like", a.Tokens.AccessToken, nil)
	wantError(t, status, env, http.StatusConflict, utils.CodeAlreadyLiked)
	status, env = call(t, r, http.MethodDelete, postPath+"/unlike", a.Tokens.AccessToken, nil)
	decode(t, env, &like)
	if status != http.StatusOK || like.LikeCount != 0 {
		t.Fatalf("unlike: %d %+v", status, like)
	}
	status, env = call(t, r, http.MethodDelete, postPath+"/unlike", a.Tokens.AccessToken, nil)
	wantError(t, status, env, http.StatusBadRequest, utils.CodeNotLiked)

	status, env = call(t, r, http.MethodGet, "/api/posts/abc", "", nil)
	wantError(t, status, env, http.StatusBadRequest, utils.CodeValidation)
	status, env = call(t, r, http.MethodGet, "/api/posts/9999", "", nil)
	wantError(t, status, env, http.StatusNotFound, utils.CodeNotFound)
}

func TestPostListingAndSearch(t *testing.T) {
	r := newTestRouter(t)
	a := signupUser(t, r, "a@example.com", "mentee")
	createPost(t, r, a.Tokens.AccessToken)
	createPost(t, r, a.Tokens.AccessToken)

	var page struct {
		Posts []struct {
			ID     uint `json:"id"`
			Author *struct {
				ID uint `json:"id"`
			} `json:"author"`
		} `json:"posts"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"totalPages"`
	}
	status, env := call(t, r, http.MethodGet, "/api/posts?limit=1&page=2&category="+url.QueryEscape("학생지도"), "", nil)
	decode(t, env, &page)
	if status != http.StatusOK || page.Total != 2 || page.TotalPages != 2 || len(page.Posts) != 1 || page.Posts[0].Author == nil {
		t.Fatalf("page 2: %d %+v", status, page)
	}
	status, env = call(t, r, http.MethodGet, "/api/posts?limit=500", "", nil)
	wantError(t, status, env, http.StatusBadRequest, utils.CodeValidation)

	status, env = call(t, r, http.MethodGet, "/api/posts/search?q="+url.QueryEscape("학급"), "", nil)
	decode(t, env, &page)
	if status != http.StatusOK || page.Total != 2 {
		t.Fatalf("search: %d %+v", status, page)
	}
	status, env = call(t, r, http.MethodGet, "/api/posts/search", "", nil)
	wantError(t, status, env, http.StatusBadRequest, utils.CodeValidation)
}

func TestCommentAndReactionRoutes(t *testing.T) {
	r := newTestRouter(t)
	a := signupUser(t, r, "a@example.com", "mentee")
	b := signupUser(t, r, "b@example.com", "mentor")
	postID := createPost(t, r, a.Tokens.AccessToken)
	postPath := fmt.Sprintf("/api/posts/%d", postID)

	status, env := call(t, r, http.MethodPost, postPath+"/comments", b.Tokens.AccessToken, gin.H{"content": "답글", "parentId": 9999})
	wantError(t, status, env, http.StatusNotFound, utils.CodeParentNotFound)

	_, env = call(t, r, http.MethodPost, postPath+"/comments", b.Tokens.AccessToken, gin.H{"content": "원 댓글"})
	var comment struct {
		ID uint `json:"id"`
	}
	decode(t, env, &comment)
	commentPath := fmt.Sprintf("%s/comments/%d", postPath, comment.ID)

	status, env = call(t, r, http.MethodPatch, commentPath, a.Tokens.AccessToken, gin.H{"content": "남의 댓글"})
	wantError(t, status, env, http.StatusForbidden, utils.CodeForbidden)
	status, env = call(t, r, http.MethodPost, commentPath+"/like", a.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("comment like: %d %+v", status, env.Error)
	}
	status, env = call(t, r, http.MethodPost, commentPath+"/like", a.Tokens.AccessToken, nil)
	wantError(t, status, env, http.StatusConflict, utils.CodeAlreadyLiked)
	status, _ = call(t, r, http.MethodDelete, commentPath+"/like", a.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("comment unlike: %d", status)
	}
	status, _ = call(t, r, http.MethodDelete, commentPath, b.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete comment: %d", status)
	}
	status, env = call(t, r, http.MethodDelete, commentPath, b.Tokens.AccessToken, nil)
	wantError(t, status, env, http.StatusBadRequest, utils.CodeAlreadyDeleted)

	var thread []struct {
		Content   string `json:"content"`
		IsDeleted bool   `json:"isDeleted"`
	}
	_, env = call(t, r, http.MethodGet, postPath+"/comments", "", nil)
	decode(t, env, &thread)
	if len(thread) != 1 || !thread[0].IsDeleted || thread[0].Content != "삭제된 댓글입니다." {
		t.Fatalf("thread: %+v", thread)
	}

	var reaction struct {
		Reaction struct {
			ID   uint   `json:"id"`
			Type string `json:"type"`
		} `json:"reaction"`
		Replaced bool `json:"replaced"`
	}
	status, env = call(t, r, http.MethodPost, postPath+"/reactions", b.Tokens.AccessToken, gin.H{"type": "cheer"})
	decode(t, env, &reaction)
	if status != http.StatusCreated || reaction.Replaced {
		t.Fatalf("add reaction: %d %+v", status, reaction)
	}
	status, env = call(t, r, http.MethodPost, postPath+"/reactions", b.Tokens.AccessToken, gin.H{"type": "cheer"})
	wantError(t, status, env, http.StatusConflict, utils.CodeAlreadyReacted)
	status, env = call(t, r, http.MethodPost, postPath+"/reactions", b.Tokens.AccessToken, gin.H{"type": "funny"})
	decode(t, env, &reaction)
	if status != http.StatusOK || !reaction.Replaced || reaction.Reaction.Type != "funny" {
		t.Fatalf("replace reaction: %d %+v", status, reaction)
	}

	var summary struct {
		Counts map[string]int64 `json:"counts"`
		Total  int64            `json:"total"`
	}
	_, env = call(t, r, http.MethodGet, postPath+"/reactions", "", nil)
	decode(t, env, &summary)
	if summary.Total != 1 || summary.Counts["funny"] != 1 || summary.Counts["cheer"] != 0 {
		t.Fatalf("summary: %+v", summary)
	}

	reactionPath := fmt.Sprintf("%s/reactions/%d", postPath, reaction.Reaction.ID)
	status, env = call(t, r, http.MethodDelete, reactionPath, a.Tokens.AccessToken, nil)
	wantError(t, status, env, http.StatusForbidden, utils.CodeForbidden)
	status, _ = call(t, r, http.MethodDelete, reactionPath, b.Tokens.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("remove reaction: %d", status)
	}

	var stats struct {
		UserCount    int64 `json:"userCount"`
		CommentCount int64 `json:"commentCount"`
	}
	_, env = call(t, r, http.MethodGet, "/api/stats", "", nil)
	decode(t, env, &stats)
	if stats.UserCount != 2 || stats.CommentCount != 0 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestChatRoutesAndEvents(t *testing.T) {
	r := newTestRouter(t)
	a := signupUser(t, r, "a@example.com", "mentee")
	b := signupUser(t, r, "b@example.com", "mentor")

	status, env := call(t, r, http.MethodPost, "/api/chat/rooms", a.Tokens.AccessToken, gin.H{"participantId": a.User.ID})
	wantError(t, status, env, http.StatusBadRequest, utils.CodeValidation)
	status, env = call(t, r, http.MethodPost, "/api/chat/rooms", a.Tokens.AccessToken, gin.H{"participantId": b.User.ID})
	if status != http.StatusCreated {
		t.Fatalf("create room: %d %+v", status, env.Error)
	}
	var room struct {
		ID uint `json:"id"`
	}
	decode(t, env, &room)
	status, _ = call(t, r, http.MethodPost, "/api/chat/rooms", b.Tokens.AccessToken, gin.H{"participantId": a.User.ID})
	if status != http.StatusOK {
		t.Fatalf("existing room should answer 200, got %d", status)
	}

	srv := httptest.NewServer(r)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/chat/rooms/%d/events", srv.URL, room.ID), nil)
	req.Header.Set("Authorization", "Bearer "+b.Tokens.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("stream: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	events := make(chan string, 8)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "event:") {
				events <- strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			}
		}
	}()
	waitFor := func(name string) {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					t.Fatalf("stream closed before %s", name)
				}
				if ev == name {
					return
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %s", name)
			}
		}
	}
	waitFor(utils.EventJoinRoom)

	msgPath := fmt.Sprintf("/api/chat/rooms/%d/messages", room.ID)
	status, env = call(t, r, http.MethodPost, msgPath, a.Tokens.AccessToken, gin.H{"content": "안녕하세요"})
	if status != http.StatusCreated {
		t.Fatalf("send: %d %+v", status, env.Error)
	}
	waitFor(utils.EventNewMessage)

	var rooms []struct {
		UnreadCount int64 `json:"unreadCount"`
	}
	_, env = call(t, r, http.MethodGet, "/api/chat/rooms", b.Tokens.AccessToken, nil)
	decode(t, env, &rooms)
	if len(rooms) != 1 || rooms[0].UnreadCount != 1 {
		t.Fatalf("rooms before reading: %+v", rooms)
	}
	var msgs []struct {
		Content string `json:"content"`
	}
	_, env = call(t, r, http.MethodGet, msgPath, b.Tokens.AccessToken, nil)
	decode(t, env, &msgs)
	if len(msgs) != 1 || msgs[0].Content != "안녕하세요" {
		t.Fatalf("messages: %+v", msgs)
	}
	_, env = call(t, r, http.MethodGet, "/api/chat/rooms", b.Tokens.AccessToken, nil)
	decode(t, env, &rooms)
	if rooms[0].UnreadCount != 0 {
		t.Fatalf("unread after reading = %d", rooms[0].UnreadCount)
	}

	c := signupUser(t, r, "c@example.com", "mentee")
	status, env = call(t, r, http.MethodGet, msgPath, c.Tokens.AccessToken, nil)
	wantError(t, status, env, http.StatusForbidden, utils.CodeForbidden)
}
