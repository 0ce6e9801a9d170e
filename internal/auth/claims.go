package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// DisplayClaims are access-token claims read for display only.
type DisplayClaims struct {
	Subject string
	Roles   []string
}

type accessClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// ReadDisplayClaims decodes the payload of an access token WITHOUT verifying
// its signature or expiry. The result must never be used for an access
// decision; the backend remains the only verifier. ok is false for tokens
// that are not JWTs.
func ReadDisplayClaims(token string) (DisplayClaims, bool) {
	if token == "" {
		return DisplayClaims{}, false
	}
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return DisplayClaims{}, false
	}
	return DisplayClaims{Subject: claims.Subject, Roles: claims.Roles}, true
}
