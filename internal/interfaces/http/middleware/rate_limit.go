package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"paysync.backend/pkg/redis"
)

// RateLimitMiddleware caps the number of requests a single client IP
// may make within window using a fixed-window counter in Redis. It
// protects webhook intake from retry storms and abusive clients
// without needing per-provider allowlisting.
func RateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := redis.GetClient()
		if client == nil {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP()
		ctx := c.Request.Context()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
