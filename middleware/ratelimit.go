package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pdf-insight-backend/internal/config"
	"pdf-insight-backend/utils"
)

// RateLimitMiddleware limits requests per client IP using token buckets.
// The limiter map is pruned lazily; stale entries for idle IPs are dropped
// once they have not been seen for several windows.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var mu sync.Mutex
	clients := make(map[string]*client)
	window := time.Duration(cfg.RateLimitWindow) * time.Second
	perSecond := rate.Limit(float64(cfg.RateLimitReqs) / window.Seconds())

	return func(c *gin.Context) {
		// Skip rate limiting for health checks
		if c.FullPath() == "/health" || c.FullPath() == "/ready" {
			c.Next()
			return
		}

		ip := c.ClientIP()
		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			cl = &client{limiter: rate.NewLimiter(perSecond, cfg.RateLimitReqs)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		for k, v := range clients {
			if time.Since(v.lastSeen) > 3*window {
				delete(clients, k)
			}
		}
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))
			c.Header("X-RateLimit-Remaining", "0")
			utils.RespondWithError(c, http.StatusTooManyRequests,
				"rate_limit_exceeded",
				"Too many requests. Please try again later.",
				gin.H{
					"retry_after": cfg.RateLimitWindow,
					"limit":       cfg.RateLimitReqs,
				})
			c.Abort()
			return
		}
		c.Next()
	}
}
