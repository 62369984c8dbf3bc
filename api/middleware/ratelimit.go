package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/scrapeform/config"
	"github.com/use-agent/scrapeform/models"
)

// limiterIdleTTL is how long an identity's bucket survives without traffic.
const limiterIdleTTL = time.Hour

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per identity.
type limiterSet struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
}

func newLimiterSet(cfg config.RateLimitConfig) *limiterSet {
	return &limiterSet{
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		limiters: make(map[string]*limiterEntry),
	}
}

func (ls *limiterSet) allow(identity string, now time.Time) bool {
	ls.mu.Lock()
	entry, ok := ls.limiters[identity]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(ls.limit, ls.burst)}
		ls.limiters[identity] = entry
	}
	entry.lastSeen = now
	ls.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

// evict drops buckets unused since before cutoff.
func (ls *limiterSet) evict(cutoff time.Time) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for id, entry := range ls.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(ls.limiters, id)
		}
	}
}

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware. Buckets idle for an hour are swept every 5 minutes.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	ls := newLimiterSet(cfg)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			ls.evict(now.Add(-limiterIdleTTL))
		}
	}()

	return func(c *gin.Context) {
		// Prefer the API key set by Auth; fall back to IP.
		identity := c.GetString(KeyAPIKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !ls.allow(identity, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}

		c.Next()
	}
}
