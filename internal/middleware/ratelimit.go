package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"callmate-backend/pkg/response"
)

// RateLimiter implements Redis-based fixed-window rate limiting, keyed by
// authenticated user when available, client IP otherwise
type RateLimiter struct {
	redisClient *redis.Client
	requests    int
	window      time.Duration
}

// NewRateLimiter creates a new rate limiter allowing `requests` per
// `window`
func NewRateLimiter(redisClient *redis.Client, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		requests:    requests,
		window:      window,
	}
}

// Middleware returns a Gin middleware for rate limiting. Redis errors fail
// open.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var identifier string
		if userID, exists := c.Get(CtxUserID); exists {
			identifier = fmt.Sprintf("user:%v", userID)
		} else {
			identifier = "ip:" + c.ClientIP()
		}

		key := fmt.Sprintf("ratelimit:%s:%d", identifier, time.Now().Unix()/int64(rl.window.Seconds()))

		ctx := c.Request.Context()
		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rl.redisClient.Expire(ctx, key, rl.window)
		}

		remaining := rl.requests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > rl.requests {
			response.Error(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
