package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"auth_portal/internal/config"
	"auth_portal/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend mimics the token-issuing backend and records what it saw.
type fakeBackend struct {
	mu sync.Mutex

	validAccess     string
	validRefresh    string
	rejectRefresh   bool
	meAlwaysRejects bool
	nextPair        TokenPair

	calls               map[string]int
	headers             map[string][]string // path -> Authorization values
	logoutRefreshHeader string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		validAccess:  "access-1",
		validRefresh: "refresh-1",
		nextPair:     TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2", TokenType: "Bearer"},
		calls:        map[string]int{},
		headers:      map[string][]string{},
	}
}

func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeBackend) authHeaders(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.headers[path]...)
}

// set mutates the fake under its lock.
func (f *fakeBackend) set(fn func(*fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) refreshHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutRefreshHeader
}

// expireAccess makes the backend reject the current access token.
func (f *fakeBackend) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess = "no-longer-valid"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"status": 401, "error": "Unauthorized", "message": msg})
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var raw json.RawMessage
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&raw)
	}
	f.calls[r.URL.Path]++
	f.headers[r.URL.Path] = append(f.headers[r.URL.Path], r.Header.Get("Authorization"))

	switch r.URL.Path {
	case "/api/token":
		var req LoginRequest
		json.Unmarshal(raw, &req)
		if req.Username != "alice" || req.Password != "secret1" {
			unauthorized(w, "Invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1", TokenType: "Bearer", ExpiresIn: 900, Roles: []string{"ROLE_USER"}})

	case "/api/token/refresh":
		var req RefreshTokenRequest
		json.Unmarshal(raw, &req)
		if f.rejectRefresh || req.RefreshToken != f.validRefresh {
			unauthorized(w, "Invalid refresh token")
			return
		}
		f.validAccess = f.nextPair.AccessToken
		f.validRefresh = f.nextPair.RefreshToken
		pair := f.nextPair
		pair.RefreshedAt = time.Now().UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusOK, pair)

	case "/api/users/register":
		var req RegisterRequest
		json.Unmarshal(raw, &req)
		switch {
		case req.UserName == "" || req.Password == "":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("username and password are required"))
		case req.UserName == "taken":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte("username already exists"))
		case req.UserName == "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("User created"))
		}

	case "/api/logout":
		if r.Header.Get("Authorization") != "Bearer "+f.validAccess {
			unauthorized(w, "Valid Token Required")
			return
		}
		f.logoutRefreshHeader = r.Header.Get("X-Refresh-Token")
		writeJSON(w, http.StatusOK, LogoutResponse{Message: "Successfully logged out", AccessTokenRevoked: true, RefreshTokenRevoked: f.logoutRefreshHeader != ""})

	case "/api/users/me":
		if f.meAlwaysRejects || r.Header.Get("Authorization") != "Bearer "+f.validAccess {
			unauthorized(w, "Token expired")
			return
		}
		writeJSON(w, http.StatusOK, CurrentUser{Subject: "alice", Roles: []string{"ROLE_USER"}, TokenType: "access"})

	default:
		http.NotFound(w, r)
	}
}

// newTestSession starts a fake backend and a session bound to it.
func newTestSession(t *testing.T) (*Session, *fakeBackend, storage.KeyValueStore) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store := storage.NewMemoryStore()
	sess, err := NewSession(&config.Config{
		BackendAPIURL:  srv.URL + "/api",
		BackendTimeout: 5 * time.Second,
	}, store, zap.NewNop())
	require.NoError(t, err)
	return sess, backend, store
}
