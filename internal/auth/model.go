// File: internal/auth/model.go
package auth

// TokenPair is the backend's token issuance response. Only the two tokens are
// persisted; the remaining fields are informational.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type,omitempty"`
	ExpiresIn    int64    `json:"expires_in,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	RefreshedAt  string   `json:"refreshed_at,omitempty"`
}

// LoginRequest is the body of POST /token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// RefreshTokenRequest is the body of POST /token/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutResponse is the body returned by POST /logout.
type LogoutResponse struct {
	Message             string `json:"message"`
	AccessTokenRevoked  bool   `json:"access_token_revoked,omitempty"`
	RefreshTokenRevoked bool   `json:"refresh_token_revoked,omitempty"`
	RefreshTokenError   string `json:"refresh_token_error,omitempty"`
}

// CurrentUser is the body returned by GET /users/me.
type CurrentUser struct {
	Subject   string   `json:"sub"`
	Roles     []string `json:"roles"`
	Audience  []string `json:"aud"`
	TokenType string   `json:"token_type"`
	Issuer    string   `json:"iss"`
	TokenID   string   `json:"jti"`
}
