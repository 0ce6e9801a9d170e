package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"auth_portal/internal/common"

	"go.uber.org/zap"
)

// Backend endpoint paths, relative to the configured API base URL.
const (
	TokenPath    = "/token"
	RefreshPath  = "/token/refresh"
	RegisterPath = "/users/register"
	LogoutPath   = "/logout"
	MePath       = "/users/me"
)

// Client calls the token-issuing backend. Every request goes through the
// http.Client it was built with, so bearer handling is the transport's job.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client rooted at baseURL (e.g. http://localhost:8080/api).
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.Named("BackendClient"),
	}
}

// RequestToken exchanges credentials for a token pair.
func (c *Client) RequestToken(ctx context.Context, username, password string) (*TokenPair, error) {
	var pair TokenPair
	if err := c.doJSON(ctx, http.MethodPost, TokenPath, LoginRequest{Username: username, Password: password}, nil, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("token response carried no access_token")
	}
	return &pair, nil
}

// RefreshToken exchanges a refresh token for a new pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	if err := c.doJSON(ctx, http.MethodPost, RefreshPath, RefreshTokenRequest{RefreshToken: refreshToken}, nil, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("refresh response carried no access_token")
	}
	return &pair, nil
}

// Register creates an account. The backend normally answers with a plain-text
// confirmation; a token pair is returned only when the body is one.
func (c *Client) Register(ctx context.Context, username, password string) (*TokenPair, error) {
	body, err := c.do(ctx, http.MethodPost, RegisterPath, RegisterRequest{UserName: username, Password: password}, nil)
	if err != nil {
		return nil, err
	}
	var pair TokenPair
	if json.Unmarshal(body, &pair) != nil || pair.AccessToken == "" {
		c.logger.Debug("Register response carried no token pair", zap.String("body", truncate(string(body), 200)))
		return nil, nil
	}
	return &pair, nil
}

// Logout asks the backend to revoke the current access token and, when
// refreshToken is non-empty, its refresh token family.
func (c *Client) Logout(ctx context.Context, refreshToken string) (*LogoutResponse, error) {
	header := http.Header{}
	if refreshToken != "" {
		header.Set(common.RefreshTokenHeader, refreshToken)
	}
	body, err := c.do(ctx, http.MethodPost, LogoutPath, struct{}{}, header)
	if err != nil {
		return nil, err
	}
	var out LogoutResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			c.logger.Debug("Logout response is not JSON", zap.Error(err))
		}
	}
	return &out, nil
}

// CurrentUser fetches the claims of the authenticated caller.
func (c *Client) CurrentUser(ctx context.Context) (*CurrentUser, error) {
	var me CurrentUser
	if err := c.doJSON(ctx, http.MethodGet, MePath, nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in interface{}, header http.Header, out interface{}) error {
	body, err := c.do(ctx, method, path, in, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// do sends one request and returns the body of a 2xx answer. Non-2xx answers
// become *BackendError.
func (c *Client) do(ctx context.Context, method, path string, in interface{}, header http.Header) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		be := newBackendError(resp)
		c.logger.Debug("Backend returned an error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", be.StatusCode),
			zap.String("message", be.Message),
		)
		return nil, be
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
