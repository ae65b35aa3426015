// Package ratelimit implements the transport-wide IP rate limit.
//
// This is the flood guard in front of the whole API; the 100 ms per-user
// sync gate is domain logic and lives in the transport handlers.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shoutwars/server/internal/v1/config"
	"github.com/shoutwars/server/internal/v1/logging"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RateLimiter wraps an in-memory IP-keyed limiter.
type RateLimiter struct {
	api *limiter.Limiter
}

// NewRateLimiter parses the configured rate and builds the limiter over a
// memory store. The server is single-process, so no shared store is needed.
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPI)
	if err != nil {
		return nil, fmt.Errorf("invalid API rate: %w", err)
	}
	return &RateLimiter{api: limiter.New(memory.NewStore(), rate)}, nil
}

// Middleware returns a Gin middleware enforcing the IP limit. Store faults
// fail open: availability over strictness.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		limitCtx, err := rl.api.Get(ctx, c.ClientIP())
		if err != nil {
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(limitCtx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(limitCtx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(limitCtx.Reset, 10))

		if limitCtx.Reached {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
