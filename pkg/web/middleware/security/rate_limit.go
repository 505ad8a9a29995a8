package security

import (
	"sync"
	"time"

	"github.com/daylistio/daylist/pkg/web"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests per minute per client
	RequestsPerMinute int

	// KeyFunc extracts a key from the request to identify the client
	// Default: uses IP address
	KeyFunc func(ctx *web.RequestContext) string

	// OnLimitReached is called when rate limit is exceeded
	// If nil, returns 429 Too Many Requests
	OnLimitReached func(ctx *web.RequestContext) error
}

// DefaultRateLimitConfig returns a default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 100,
		KeyFunc: func(ctx *web.RequestContext) string {
			return ctx.RequestCtx.RemoteIP().String()
		},
	}
}

// rateLimiter implements token bucket rate limiting
type rateLimiter struct {
	mu            sync.RWMutex
	buckets       map[string]*tokenBucket
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	capacity   float64
	ratePerSec float64
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		buckets:       make(map[string]*tokenBucket),
		cleanupTicker: time.NewTicker(5 * time.Minute),
		cleanupDone:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup periodically drops idle buckets, so the map does not grow one
// entry per client IP forever.
func (rl *rateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.removeStale(time.Now())
		case <-rl.cleanupDone:
			return
		}
	}
}

// removeStale deletes buckets that have not been used in 10 minutes
func (rl *rateLimiter) removeStale(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		if now.Sub(bucket.lastRefill) > 10*time.Minute {
			delete(rl.buckets, key)
		}
		bucket.mu.Unlock()
	}
}

// stop halts the cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.cleanupTicker.Stop()
	close(rl.cleanupDone)
}

// allow checks if a request is allowed
func (rl *rateLimiter) allow(key string, requestsPerMinute int) bool {
	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		bucket, exists = rl.buckets[key]
		if !exists {
			bucket = &tokenBucket{
				tokens:     float64(requestsPerMinute),
				lastRefill: time.Now(),
				capacity:   float64(requestsPerMinute),
				ratePerSec: float64(requestsPerMinute) / 60.0,
			}
			rl.buckets[key] = bucket
		}
		rl.mu.Unlock()
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * bucket.ratePerSec
	if bucket.tokens > bucket.capacity {
		bucket.tokens = bucket.capacity
	}
	bucket.lastRefill = now

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

// RateLimit middleware limits requests per client key. Used on the
// credential endpoints (login, register, forgot-password) to slow
// brute-force attempts.
func RateLimit(config RateLimitConfig) web.Middleware {
	if config.RequestsPerMinute < 1 {
		config.RequestsPerMinute = 1
	}

	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = DefaultRateLimitConfig().KeyFunc
	}

	onLimitReached := config.OnLimitReached
	if onLimitReached == nil {
		onLimitReached = func(ctx *web.RequestContext) error {
			ctx.Error("Too Many Requests", 429)
			return nil
		}
	}

	limiter := newRateLimiter()

	return func(next web.RequestHandler) web.RequestHandler {
		return func(ctx *web.RequestContext) error {
			if !limiter.allow(keyFunc(ctx), config.RequestsPerMinute) {
				return onLimitReached(ctx)
			}
			return next(ctx)
		}
	}
}
