package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "finledger/internal/errors"
	"finledger/internal/logger"
)

// RateLimit rejects requests once limiter runs out of tokens. The limiter is
// shared by every route the middleware is mounted on.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.Get().Warnw("rate limit exceeded",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			abortWith(c, apperrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
