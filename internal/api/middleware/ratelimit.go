package middleware

import (
	"log/slog"
	"net/http"

	"github.com/SufyanAli56/Task-Manager/internal/pkg/metrics"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit 按客户端 IP 对请求限流。
//
// Redis 不可用时放行（限流是保护措施，不能成为单点）。
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, waitMs, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimitRejectedTotal.Inc()
			retryAfter := int(waitMs / 1000)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "too many requests", "retry_after": retryAfter})
			c.Abort()
			return
		}
		c.Next()
	}
}
