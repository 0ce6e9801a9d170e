package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"auth_portal/internal/config"
	"auth_portal/internal/storage"

	"go.uber.org/zap"
)

// Backend is the set of backend calls the session makes.
type Backend interface {
	RequestToken(ctx context.Context, username, password string) (*TokenPair, error)
	Register(ctx context.Context, username, password string) (*TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) (*LogoutResponse, error)
}

// Session owns the token pair. Tokens are persisted in the key-value store;
// the access token is also mirrored in memory, loaded once at construction and
// updated only by this Session's own operations. Another process writing the
// same store is not noticed.
type Session struct {
	store   storage.KeyValueStore
	backend Backend
	client  *Client
	logger  *zap.Logger

	mu          sync.RWMutex
	accessToken string
}

// NewSession loads the persisted session and wires the backend client through
// a bearer/refresh interceptor bound to it.
func NewSession(cfg *config.Config, store storage.KeyValueStore, logger *zap.Logger) (*Session, error) {
	s, err := newSession(context.Background(), store, nil, logger)
	if err != nil {
		return nil, err
	}
	interceptor := NewInterceptor(http.DefaultTransport, s, logger, WithSessionExpiredHook(func() {
		s.logger.Info("Session expired; login required")
	}))
	s.client = NewClient(cfg.BackendAPIURL, &http.Client{
		Transport: interceptor,
		Timeout:   cfg.BackendTimeout,
	}, logger)
	s.backend = s.client
	return s, nil
}

func newSession(ctx context.Context, store storage.KeyValueStore, backend Backend, logger *zap.Logger) (*Session, error) {
	s := &Session{
		store:   store,
		backend: backend,
		logger:  logger.Named("SessionStore"),
	}
	token, _, err := store.Get(ctx, storage.AccessTokenKey)
	if err != nil {
		return nil, fmt.Errorf("load stored session: %w", err)
	}
	s.accessToken = token
	if token != "" {
		s.logger.Debug("Restored session from local storage")
	}
	return s, nil
}

// Client returns the backend client whose requests carry this session's token.
func (s *Session) Client() *Client {
	return s.client
}

// IsLoggedIn reports whether an access token is held in memory.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != ""
}

// Subject returns the unverified "sub" claim of the in-memory access token, if any.
func (s *Session) Subject() string {
	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()
	claims, _ := ReadDisplayClaims(token)
	return claims.Subject
}

// AccessToken reads the access token from storage.
func (s *Session) AccessToken(ctx context.Context) string {
	return s.read(ctx, storage.AccessTokenKey)
}

// RefreshToken reads the refresh token from storage.
func (s *Session) RefreshToken(ctx context.Context) string {
	return s.read(ctx, storage.RefreshTokenKey)
}

// Login exchanges credentials for a token pair and stores it.
func (s *Session) Login(ctx context.Context, username, password string) error {
	pair, err := s.backend.RequestToken(ctx, username, password)
	if err != nil {
		s.logger.Info("Login failed", zap.String("username", username), zap.Error(err))
		return err
	}
	if err := s.persist(ctx, pair); err != nil {
		return err
	}
	s.logger.Info("Login succeeded", zap.String("username", username), zap.Strings("roles", pair.Roles))
	return nil
}

// Register creates an account. When the backend answers with a token pair it
// replaces the stored one; a bare confirmation leaves the session untouched.
func (s *Session) Register(ctx context.Context, username, password string) error {
	pair, err := s.backend.Register(ctx, username, password)
	if err != nil {
		s.logger.Info("Registration failed", zap.String("username", username), zap.Error(err))
		return err
	}
	s.logger.Info("Registration succeeded", zap.String("username", username))
	if pair == nil {
		return nil
	}
	return s.persist(ctx, pair)
}

// Refresh trades the stored refresh token for a new pair. A 401 or 403 from
// the refresh endpoint clears the session.
func (s *Session) Refresh(ctx context.Context) error {
	refreshToken := s.RefreshToken(ctx)
	if refreshToken == "" {
		return ErrNoRefreshToken
	}
	pair, err := s.backend.RefreshToken(ctx, refreshToken)
	if err != nil {
		if code := StatusCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			s.logger.Info("Refresh token rejected, clearing session", zap.Int("status", code))
			if clearErr := s.Clear(ctx); clearErr != nil {
				return errors.Join(err, clearErr)
			}
		}
		return err
	}
	if err := s.persist(ctx, pair); err != nil {
		return err
	}
	s.logger.Debug("Token pair refreshed")
	return nil
}

// Logout revokes the session on the backend and, on success, clears it locally.
// A failed call leaves the stored tokens in place.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.backend.Logout(ctx, s.RefreshToken(ctx))
	if err != nil {
		s.logger.Warn("Logout failed", zap.Error(err))
		return err
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Logged out",
		zap.Bool("access_token_revoked", resp.AccessTokenRevoked),
		zap.Bool("refresh_token_revoked", resp.RefreshTokenRevoked),
	)
	return nil
}

// Clear removes both tokens from storage and memory.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.accessToken = ""
	s.mu.Unlock()

	errAccess := s.store.Remove(ctx, storage.AccessTokenKey)
	errRefresh := s.store.Remove(ctx, storage.RefreshTokenKey)
	if err := errors.Join(errAccess, errRefresh); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// persist overwrites both stored tokens, then the in-memory mirror. The two
// writes are not atomic.
func (s *Session) persist(ctx context.Context, pair *TokenPair) error {
	if err := s.store.Set(ctx, storage.AccessTokenKey, pair.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := s.store.Set(ctx, storage.RefreshTokenKey, pair.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	s.mu.Lock()
	s.accessToken = pair.AccessToken
	s.mu.Unlock()
	return nil
}

func (s *Session) read(ctx context.Context, key string) string {
	v, _, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Error("Failed to read local storage", zap.String("key", key), zap.Error(err))
		return ""
	}
	return v
}
