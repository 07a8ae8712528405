// internal/middleware/rate_limit_middleware.go
package middleware

import (
	"time"

	xerrors "bundl-service/internal/pkg/errors"
	"bundl-service/internal/pkg/response"
	"bundl-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	limiter *session.RateLimiter
}

func NewRateLimitMiddleware(limiter *session.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit enforces a fixed-window request cap per authenticated user on the
// named endpoint. Must run after Auth. Fails open if redis is unreachable.
func (m *RateLimitMiddleware) Limit(endpoint string, maxRequests int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.Next()
			return
		}

		allowed, err := m.limiter.CheckAPIRateLimit(c.Request.Context(), userID, endpoint, maxRequests, window)
		if err == nil && !allowed {
			response.FromError(c, xerrors.ErrRateLimited, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
