package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"auth_portal/internal/auth"
	"auth_portal/internal/config"
	"auth_portal/internal/jobs"
	"auth_portal/internal/storage"
	"auth_portal/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// backend is a minimal token-issuing API: one user, rotating access tokens.
type backend struct {
	mu      sync.Mutex
	access  string
	refresh string
	revoked bool
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusOK)
	case "/api/token":
		var req auth.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "alice" || req.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": 401, "error": "Unauthorized", "message": "Invalid credentials"})
			return
		}
		b.access, b.refresh = "access-1", "refresh-1"
		_ = json.NewEncoder(w).Encode(auth.TokenPair{AccessToken: b.access, RefreshToken: b.refresh})
	case "/api/users/register":
		_, _ = w.Write([]byte(`"User created"`))
	case "/api/users/me":
		if r.Header.Get("Authorization") != "Bearer "+b.access || b.access == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(auth.CurrentUser{Subject: "alice", Roles: []string{"USER"}})
	case "/api/logout":
		b.revoked = true
		b.access = ""
		_ = json.NewEncoder(w).Encode(auth.LogoutResponse{Message: "Logged out", AccessTokenRevoked: true, RefreshTokenRevoked: true})
	default:
		http.NotFound(w, r)
	}
}

type ServerSuite struct {
	suite.Suite
	backend *backend
	api     *httptest.Server
	store   storage.KeyValueStore
	session *auth.Session
	router  http.Handler
}

func (s *ServerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.backend = &backend{}
	s.api = httptest.NewServer(s.backend)

	cfg := &config.Config{
		GinMode:               gin.TestMode,
		ServerHost:            "127.0.0.1",
		ServerPort:            "0",
		BackendAPIURL:         s.api.URL + "/api",
		BackendHealthURL:      s.api.URL + "/health",
		BackendTimeout:        5 * time.Second,
		HomeRoute:             "/home",
		LoginRoute:            "/login",
		RegisterRedirectDelay: 2 * time.Second,
	}
	logger := zap.NewNop()

	s.store = storage.NewMemoryStore()
	var err error
	s.session, err = auth.NewSession(cfg, s.store, logger)
	s.Require().NoError(err)

	probe := jobs.NewBackendProbeJob(cfg, logger)
	handler := web.NewHandler(s.session, s.session.Client(), probe, cfg, logger)
	srv, err := NewServer(cfg, logger, s.session, handler, probe)
	s.Require().NoError(err)
	s.router = srv.Handler()
}

func (s *ServerSuite) TearDownTest() {
	s.api.Close()
}

func (s *ServerSuite) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ServerSuite) TestLoginHomeLogoutFlow() {
	w := s.do(http.MethodGet, "/home", nil)
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/login?redirectUrl=%2Fhome", w.Header().Get("Location"))

	w = s.do(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"secret1"}})
	s.Equal(http.StatusSeeOther, w.Code)
	s.Equal("/home", w.Header().Get("Location"))
	s.True(s.session.IsLoggedIn())

	token, ok, err := s.store.Get(context.Background(), storage.AccessTokenKey)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("access-1", token)

	w = s.do(http.MethodGet, "/home", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Welcome, alice")

	w = s.do(http.MethodPost, "/logout", url.Values{})
	s.Equal(http.StatusSeeOther, w.Code)
	s.Equal("/login", w.Header().Get("Location"))
	s.False(s.session.IsLoggedIn())
	s.True(s.backend.revoked)

	_, ok, err = s.store.Get(context.Background(), storage.RefreshTokenKey)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServerSuite) TestLoginRejected() {
	w := s.do(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Contains(w.Body.String(), "Invalid credentials")
	s.False(s.session.IsLoggedIn())
}

func (s *ServerSuite) TestRegisterDoesNotLogIn() {
	w := s.do(http.MethodPost, "/register", url.Values{"username": {"bob"}, "password": {"secret1"}, "confirmPassword": {"secret1"}})
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Registration successful!")
	s.False(s.session.IsLoggedIn())
}

func (s *ServerSuite) TestHealthAndUnknownRoute() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/nowhere", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerSuite) TestSessionAPI_CORS() {
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Origin", "http://example.test")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
	s.JSONEq(`{"status":"success","data":{"logged_in":false,"subject":""}}`, w.Body.String())
}

func (s *ServerSuite) TestSessionUserAPI() {
	w := s.do(http.MethodGet, "/api/session/user", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Contains(w.Body.String(), "UNAUTHORIZED")

	w = s.do(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"secret1"}})
	s.Require().Equal(http.StatusSeeOther, w.Code)

	w = s.do(http.MethodGet, "/api/session/user", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"sub":"alice"`)
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func TestServer_ShutdownStopsProbe(t *testing.T) {
	cfg := &config.Config{GinMode: gin.TestMode, ServerHost: "127.0.0.1", ServerPort: "0", LoginRoute: "/login", HomeRoute: "/home"}
	probe := jobs.NewBackendProbeJob(cfg, zap.NewNop())
	store := storage.NewMemoryStore()
	sess, err := auth.NewSession(&config.Config{BackendAPIURL: "http://127.0.0.1:1/api"}, store, zap.NewNop())
	require.NoError(t, err)

	srv, err := NewServer(cfg, zap.NewNop(), sess, web.NewHandler(sess, sess.Client(), probe, cfg, zap.NewNop()), probe)
	require.NoError(t, err)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
