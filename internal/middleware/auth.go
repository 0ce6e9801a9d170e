// File: internal/middleware/auth.go
package middleware

import (
	"net/http"
	"net/url"

	"auth_portal/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionChecker reports whether the portal currently holds a session.
type SessionChecker interface {
	IsLoggedIn() bool
}

// CheckNavigation decides a navigation to requestedURL. It allows the
// navigation when loggedIn; otherwise it returns the login route carrying
// requestedURL in the redirectUrl query parameter.
func CheckNavigation(loggedIn bool, requestedURL, loginRoute string) (allowed bool, redirectTo string) {
	if loggedIn {
		return true, ""
	}
	q := url.Values{}
	q.Set(common.RedirectURLParam, requestedURL)
	return false, loginRoute + "?" + q.Encode()
}

// RequireSession creates a Gin middleware guarding views that need a session.
func RequireSession(sessions SessionChecker, loginRoute string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, redirectTo := CheckNavigation(sessions.IsLoggedIn(), c.Request.URL.RequestURI(), loginRoute)
		if allowed {
			c.Next()
			return
		}

		logger.Debug("Navigation blocked, no session",
			zap.String("path", c.Request.URL.Path),
			zap.String("redirect", redirectTo),
		)
		status := http.StatusFound
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			status = http.StatusSeeOther
		}
		c.Redirect(status, redirectTo)
		c.Abort()
	}
}
