package middleware

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tvcms/utils"
)

const (
	visitorIdleTimeout = time.Hour
	cleanupInterval    = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client. A bucket holds burst
// tokens and refills burst tokens per window.
type RateLimiter struct {
	visitors    map[string]*visitor
	mutex       sync.Mutex
	window      time.Duration
	burst       int
	lastCleanup time.Time
	now         func() time.Time
}

type visitor struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

type TokenBucket struct {
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
}

func NewRateLimiter(window time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		window:      window,
		burst:       burst,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func newTokenBucket(capacity int, window time.Duration, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		perSecond:  float64(capacity) / window.Seconds(),
		lastRefill: now,
	}
}

func (tb *TokenBucket) allow(now time.Time) bool {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.perSecond)
		tb.lastRefill = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Allow consumes one token for key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > cleanupInterval {
		rl.cleanup(now)
	}

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{bucket: newTokenBucket(rl.burst, rl.window, now)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.bucket.allow(now)
}

// cleanup drops idle visitors. Callers hold the mutex.
func (rl *RateLimiter) cleanup(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTimeout {
			delete(rl.visitors, key)
		}
	}
	rl.lastCleanup = now
}

// Middleware rejects clients that exhausted their bucket with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(getClientID(c)) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.window.Seconds()/float64(rl.burst)))))

			utils.TooManyRequestsResponse(c, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimits groups the limiters the router applies
type RateLimits struct {
	Global *RateLimiter
	Auth   *RateLimiter
	Upload *RateLimiter
}

// DefaultRateLimits returns the standard per-minute budgets. Disabled
// limits come back empty so Limit passes everything through.
func DefaultRateLimits(enabled bool) RateLimits {
	if !enabled {
		return RateLimits{}
	}
	return RateLimits{
		Global: NewRateLimiter(time.Minute, 300),
		Auth:   NewRateLimiter(time.Minute, 10),
		Upload: NewRateLimiter(time.Minute, 30),
	}
}

// Limit wraps a limiter as middleware. A nil limiter lets every request through.
func Limit(rl *RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}

// getClientID prefers the authenticated user over the client address
func getClientID(c *gin.Context) string {
	if userID, exists := utils.GetUserIDFromContext(c); exists {
		return fmt.Sprintf("user:%s", userID)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}
