package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"auth_portal/internal/common"

	"go.uber.org/zap"
)

// publicEndpoints never carry a bearer token. Matching is by substring of the
// request path, so "/api/token" also covers "/api/token/refresh".
var publicEndpoints = []string{"/api/token", "/api/users/register", "/api/token/refresh"}

const refreshEndpoint = "/api/token/refresh"

// TokenSource is what the interceptor needs from the session.
type TokenSource interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	Refresh(ctx context.Context) error
	Clear(ctx context.Context) error
}

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithSessionExpiredHook registers fn to run after a failed refresh has
// cleared the session, e.g. to send the user back to the login view.
func WithSessionExpiredHook(fn func()) InterceptorOption {
	return func(i *Interceptor) { i.onSessionExpired = fn }
}

// Interceptor is an http.RoundTripper that attaches the session's bearer token
// and performs a single refresh-and-retry on 401. Concurrent 401s are not
// coordinated: each one refreshes on its own.
type Interceptor struct {
	base             http.RoundTripper
	source           TokenSource
	logger           *zap.Logger
	onSessionExpired func()
}

// NewInterceptor wraps base (http.DefaultTransport when nil).
func NewInterceptor(base http.RoundTripper, source TokenSource, logger *zap.Logger, opts ...InterceptorOption) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	i := &Interceptor{
		base:   base,
		source: source,
		logger: logger.Named("Interceptor"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IsPublicEndpoint reports whether path is on the allow-list of endpoints that
// are sent without an Authorization header.
func IsPublicEndpoint(path string) bool {
	for _, p := range publicEndpoints {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if IsPublicEndpoint(req.URL.Path) {
		return i.base.RoundTrip(req)
	}

	ctx := req.Context()
	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	first, err := authorize(req, i.source.AccessToken(ctx), getBody)
	if err != nil {
		return nil, err
	}
	resp, err := i.base.RoundTrip(first)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized ||
		strings.Contains(req.URL.Path, refreshEndpoint) ||
		i.source.RefreshToken(ctx) == "" {
		return resp, nil
	}

	// Drop the 401 before refreshing so its connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	i.logger.Debug("Received 401, attempting token refresh", zap.String("path", req.URL.Path))
	if err := i.source.Refresh(ctx); err != nil {
		i.logger.Warn("Token refresh failed, clearing session", zap.String("path", req.URL.Path), zap.Error(err))
		if clearErr := i.source.Clear(ctx); clearErr != nil {
			i.logger.Error("Failed to clear session after refresh failure", zap.Error(clearErr))
		}
		if i.onSessionExpired != nil {
			i.onSessionExpired()
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	retry, err := authorize(req, i.source.AccessToken(ctx), getBody)
	if err != nil {
		return nil, err
	}
	return i.base.RoundTrip(retry)
}

// authorize clones req with a fresh body and, when token is non-empty, a bearer header.
func authorize(req *http.Request, token string, getBody func() (io.ReadCloser, error)) (*http.Request, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}
	if token != "" {
		out.Header.Set(common.AuthorizationHeader, common.BearerValue(token))
	}
	return out, nil
}

// replayableBody returns a body factory so the request can be sent twice.
// Bodies without GetBody are buffered in memory and the original is closed.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}
