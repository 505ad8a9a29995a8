package security

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/pkg/web"
)

func TestRateLimiter_AllowExhaustsTokens(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 3; i++ {
		if !rl.allow("client-1", 3) {
			t.Fatalf("allow() request %d = false, want true", i+1)
		}
	}
	if rl.allow("client-1", 3) {
		t.Error("allow() after exhausting the bucket = true, want false")
	}
	// Other clients get their own bucket
	if !rl.allow("client-2", 3) {
		t.Error("allow() for a fresh client = false, want true")
	}
}

func TestRateLimiter_RemoveStaleDropsIdleBuckets(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	rl.allow("idle-client", 10)
	rl.allow("active-client", 10)

	rl.mu.Lock()
	rl.buckets["idle-client"].lastRefill = time.Now().Add(-11 * time.Minute)
	rl.mu.Unlock()

	rl.removeStale(time.Now())

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.buckets["idle-client"]; ok {
		t.Error("removeStale() kept a bucket idle for over 10 minutes")
	}
	if _, ok := rl.buckets["active-client"]; !ok {
		t.Error("removeStale() dropped a recently used bucket")
	}
}

func TestRateLimit_MiddlewareReturns429(t *testing.T) {
	limit := RateLimit(RateLimitConfig{
		RequestsPerMinute: 1,
		KeyFunc:           func(ctx *web.RequestContext) string { return "client-1" },
	})

	handler := limit(func(ctx *web.RequestContext) error {
		ctx.RequestCtx.SetStatusCode(fasthttp.StatusOK)
		return nil
	})

	first := web.NewRequestContext(&fasthttp.RequestCtx{}, "test-request-id")
	if err := handler(first); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := first.RequestCtx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Errorf("first request status = %d, want %d", got, fasthttp.StatusOK)
	}

	second := web.NewRequestContext(&fasthttp.RequestCtx{}, "test-request-id")
	if err := handler(second); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := second.RequestCtx.Response.StatusCode(); got != fasthttp.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", got, fasthttp.StatusTooManyRequests)
	}
}
