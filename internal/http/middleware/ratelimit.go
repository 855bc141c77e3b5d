// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter with one
// bucket per caller. Buckets live in a go-cache store with a sliding idle
// TTL, so callers that go quiet are forgotten by the cache's janitor.
//
// Planning runs are far more expensive than reads, so unsafe methods may be
// charged more than one token (see RateLimiterOptions.WriteCost). Replays of
// completed idempotent requests are never charged.
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by caller identity (the "userID" context value
// or the X-User-ID header) and falls back to the client IP. Keys are
// prefixed so user and IP namespaces cannot collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return "user:" + h
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimiterOptions tunes a RateLimiter.
type RateLimiterOptions struct {
	// IdleTTL is how long an unused bucket is kept. Defaults to 10 minutes.
	IdleTTL time.Duration
	// WriteCost is the number of tokens charged for POST, PUT, PATCH and
	// DELETE requests. Values < 1 mean 1.
	WriteCost int
}

// RateLimiter enforces per-key token buckets. It is safe for concurrent use.
type RateLimiter struct {
	rps       rate.Limit
	burst     int
	writeCost int
	keyFn     keyFunc
	ttl       time.Duration

	mu      sync.Mutex // serializes bucket creation
	buckets *cache.Cache
}

// NewRateLimiter constructs a RateLimiter refilling rps tokens per second up
// to burst (coerced to at least 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	return NewRateLimiterWithOptions(rps, burst, keyFn, RateLimiterOptions{})
}

// NewRateLimiterWithOptions is NewRateLimiter with explicit options.
func NewRateLimiterWithOptions(rps float64, burst int, keyFn keyFunc, opts RateLimiterOptions) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	if opts.WriteCost < 1 {
		opts.WriteCost = 1
	}
	if opts.WriteCost > burst {
		opts.WriteCost = burst
	}
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		writeCost: opts.WriteCost,
		keyFn:     keyFn,
		ttl:       opts.IdleTTL,
		buckets:   cache.New(opts.IdleTTL, opts.IdleTTL/2),
	}
}

// limiter returns the bucket for key, creating it if needed. Every access
// re-stores the bucket to slide its idle TTL.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		rl.buckets.Set(key, lim, rl.ttl)
		return lim
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.buckets.Get(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets.Set(key, lim, rl.ttl)
	return lim
}

// Buckets returns the number of live buckets.
func (rl *RateLimiter) Buckets() int { return rl.buckets.ItemCount() }

func (rl *RateLimiter) cost(c *gin.Context) int {
	if isUnsafe(c.Request.Method) {
		return rl.writeCost
	}
	return 1
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay of a completed request.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware. Rejected requests get a 429 with a
// Retry-After header and the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		if rl.limiter(rl.keyFn(c)).AllowN(time.Now(), rl.cost(c)) {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
