// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// RefreshTokenHeader carries the refresh token on logout so the backend can revoke it.
	RefreshTokenHeader = "X-Refresh-Token"
	// RedirectURLParam is the login query parameter holding the originally requested URL.
	RedirectURLParam = "redirectUrl"
	// LoggerKey is the context key for the request-scoped logger
	LoggerKey = "logger"
)

// BearerValue formats an Authorization header value for token.
func BearerValue(token string) string {
	return AuthorizationTypeBearer + " " + token
}
