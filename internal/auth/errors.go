package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired means a refresh attempt failed and the session was cleared.
	// Callers should send the user back to login.
	ErrSessionExpired = errors.New("auth: session expired, please log in again")
	// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
	ErrNoRefreshToken = errors.New("auth: no refresh token stored")
)

const maxErrorBody = 64 << 10

// BackendError is a non-2xx answer from the backend. JSON bodies in the
// backend's error shape are decoded; any other body lands in Message.
type BackendError struct {
	StatusCode int                    `json:"status"`
	Label      string                 `json:"error"`
	Message    string                 `json:"message"`
	Path       string                 `json:"path,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

func newBackendError(resp *http.Response) *BackendError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	be := &BackendError{}
	if err := json.Unmarshal(raw, be); err != nil {
		be = &BackendError{Message: strings.TrimSpace(string(raw))}
	}
	// The status line wins over whatever the body claims.
	be.StatusCode = resp.StatusCode
	if be.Label == "" {
		be.Label = http.StatusText(resp.StatusCode)
	}
	return be
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var be *BackendError
	if errors.As(err, &be) {
		return be.StatusCode
	}
	return 0
}

// LoginErrorMessage turns a Login error into the text shown on the login view.
func LoginErrorMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return "Login failed. Please try again."
}

// RegisterErrorMessage turns a Register error into the text shown on the
// register view: 409 is a duplicate username, 400 carries the backend's
// validation message, anything else falls back to the body or a generic text.
func RegisterErrorMessage(err error) string {
	var be *BackendError
	if !errors.As(err, &be) {
		return "Registration failed. Please try again."
	}
	switch be.StatusCode {
	case http.StatusConflict:
		return "Username already exists. Please choose a different username."
	case http.StatusBadRequest:
		if be.Message != "" {
			return be.Message
		}
		return "Invalid input. Please check your data."
	default:
		if be.Message != "" {
			return be.Message
		}
		return "Registration failed. Please try again."
	}
}
