package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDisplayClaims(t *testing.T) {
	claims := accessClaims{
		Roles: []string{"ROLE_USER"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "alice",
			// Already expired: display claims ignore validity.
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	require.NoError(t, err)

	got, ok := ReadDisplayClaims(signed)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Subject)
	assert.Equal(t, []string{"ROLE_USER"}, got.Roles)
}

func TestReadDisplayClaims_NotAJWT(t *testing.T) {
	_, ok := ReadDisplayClaims("opaque-token")
	assert.False(t, ok)
	_, ok = ReadDisplayClaims("")
	assert.False(t, ok)
}
