package middleware

import (
	"time"

	"auth_portal/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every route it guards.
// A nil *RateLimiter never throttles.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimiter allows perMinute requests per minute with the given burst.
// perMinute <= 0 disables the limit and returns nil.
func NewRateLimiter(perMinute, burst int, logger *zap.Logger) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		logger:  logger,
	}
}

// Middleware throttles the route. Rejected requests go to reject, which must
// write the response; a nil reject answers with the JSON 429 error.
func (rl *RateLimiter) Middleware(reject gin.HandlerFunc) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if reject == nil {
		reject = func(c *gin.Context) { common.RespondWithError(c, common.ErrTooManyRequests) }
	}

	return func(c *gin.Context) {
		if !rl.limiter.Allow() {
			rl.logger.Warn("Credential submission throttled",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			reject(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
