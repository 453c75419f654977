package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// fakeServer issues numbered tokens; only the latest access token is accepted.
type fakeServer struct {
	generation atomic.Int32
	refreshes  atomic.Int32
	failAll    bool
}

func (f *fakeServer) write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeServer) tokens() map[string]string {
	g := string(rune('0' + f.generation.Load()))
	return map[string]string{"accessToken": "access-" + g, "refreshToken": "refresh-" + g}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			f.write(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false, "error": map[string]string{"code": "INVALID_CREDENTIALS", "message": "bad"},
			})
			return
		}
		f.generation.Store(1)
		f.write(w, http.StatusOK, map[string]interface{}{
			"success": true, "data": map[string]interface{}{"user": map[string]interface{}{"id": 1}, "tokens": f.tokens()},
		})
	case "/api/auth/refresh":
		f.refreshes.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refreshToken"] != f.tokens()["refreshToken"] {
			f.write(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false, "error": map[string]string{"code": "INVALID_TOKEN", "message": "stale"},
			})
			return
		}
		f.generation.Add(1)
		f.write(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{"tokens": f.tokens()}})
	default:
		if f.failAll || r.Header.Get("Authorization") != "Bearer "+f.tokens()["accessToken"] {
			f.write(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false, "error": map[string]string{"code": "UNAUTHORIZED", "message": "login"},
			})
			return
		}
		f.write(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"path": r.URL.Path}})
	}
}

func TestLoginAndDo(t *testing.T) {
	fake := &fakeServer{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()
	c := New(srv.URL + "/")

	err := c.Login(ctx, "a@example.com", "nope", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("bad login error: %v", err)
	}

	var user struct {
		ID int `json:"id"`
	}
	if err := c.Login(ctx, "a@example.com", "secret123", &user); err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != 1 || c.Tokens().AccessToken != "access-1" {
		t.Fatalf("login state: user=%+v tokens=%+v", user, c.Tokens())
	}

	var out struct {
		Path string `json:"path"`
	}
	if err := c.Do(ctx, http.MethodGet, "/api/auth/profile", nil, &out); err != nil {
		t.Fatalf("do: %v", err)
	}
	if out.Path != "/api/auth/profile" || fake.refreshes.Load() != 0 {
		t.Fatalf("unexpected result %+v refreshes=%d", out, fake.refreshes.Load())
	}
}

func TestDoRefreshesOnceOn401(t *testing.T) {
	fake := &fakeServer{}
	fake.generation.Store(2)
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	// access-1 is stale, refresh-2 is current
	c := New(srv.URL, WithTokens(Tokens{AccessToken: "access-1", RefreshToken: "refresh-2"}))
	if err := c.Do(ctx, http.MethodGet, "/api/chat/rooms", nil, nil); err != nil {
		t.Fatalf("do with stale access token: %v", err)
	}
	if fake.refreshes.Load() != 1 || c.Tokens().AccessToken != "access-3" {
		t.Fatalf("refreshes=%d tokens=%+v", fake.refreshes.Load(), c.Tokens())
	}

	fake.failAll = true
	err := c.Do(ctx, http.MethodGet, "/api/chat/rooms", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("second 401 should reach the caller, got %v", err)
	}
	if fake.refreshes.Load() != 2 {
		t.Fatalf("expected exactly one more refresh, got %d", fake.refreshes.Load())
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url).Do(context.Background(), http.MethodGet, "/api/posts", nil, nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
}
