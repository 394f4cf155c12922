package limiter

import (
	"context"
	"sync"
	"time"
)

// idleBucketTTL is how long an unused bucket survives before cleanup
const idleBucketTTL = 5 * time.Minute

// Limiter decides whether a request from a client may proceed
type Limiter interface {
	// Allow reports whether a request keyed by key (the client address) is
	// within its budget, consuming one unit if so.
	Allow(ctx context.Context, key string) bool

	Close() error
}

// TokenBucket holds the budget of a single client. Tokens refill
// continuously at refillRate up to capacity; each request takes one.
type TokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket. Capacity is at least one token so
// fractional rates (e.g. 0.2/s) still admit a first request.
func NewTokenBucket(rate, capacity float64, now time.Time) *TokenBucket {
	capacity = max(capacity, 1.0)
	return &TokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: rate,
		lastRefill: now,
	}
}

// take refills the bucket up to now and consumes a token if one is available
func (tb *TokenBucket) take(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if elapsed := now.Sub(tb.lastRefill).Seconds(); elapsed > 0 {
		tb.tokens = min(tb.tokens+elapsed*tb.refillRate, tb.capacity)
		tb.lastRefill = now
	}

	if tb.tokens < 1.0 {
		return false
	}
	tb.tokens--
	return true
}

func (tb *TokenBucket) idleSince() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill
}

// MemoryLimiter keeps one token bucket per client in process memory.
// Suitable for a single reference server.
type MemoryLimiter struct {
	buckets  sync.Map // key -> *TokenBucket
	rate     float64
	capacity float64
	now      func() time.Time

	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter creates an in-memory limiter admitting requestsPerSecond
// per client, with bursts of up to one second's worth.
func NewMemoryLimiter(requestsPerSecond float64) *MemoryLimiter {
	return newMemoryLimiterWithClock(requestsPerSecond, time.Now)
}

func newMemoryLimiterWithClock(requestsPerSecond float64, now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		rate:        requestsPerSecond,
		capacity:    requestsPerSecond,
		now:         now,
		lastCleanup: now(),
	}
}

// Allow implements Limiter
func (rl *MemoryLimiter) Allow(_ context.Context, key string) bool {
	now := rl.now()
	allowed := rl.bucket(key, now).take(now)
	rl.maybeCleanup(now)
	return allowed
}

func (rl *MemoryLimiter) bucket(key string, now time.Time) *TokenBucket {
	if v, ok := rl.buckets.Load(key); ok {
		return v.(*TokenBucket)
	}
	actual, _ := rl.buckets.LoadOrStore(key, NewTokenBucket(rl.rate, rl.capacity, now))
	return actual.(*TokenBucket)
}

// maybeCleanup drops buckets idle for longer than idleBucketTTL, at most
// once per idleBucketTTL.
func (rl *MemoryLimiter) maybeCleanup(now time.Time) {
	rl.cleanupMu.Lock()
	defer rl.cleanupMu.Unlock()

	if now.Sub(rl.lastCleanup) < idleBucketTTL {
		return
	}

	threshold := now.Add(-idleBucketTTL)
	rl.buckets.Range(func(key, value any) bool {
		if value.(*TokenBucket).idleSince().Before(threshold) {
			rl.buckets.Delete(key)
		}
		return true
	})
	rl.lastCleanup = now
}

// Len returns the number of tracked clients
func (rl *MemoryLimiter) Len() int {
	n := 0
	rl.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close implements Limiter; there is nothing to release
func (rl *MemoryLimiter) Close() error {
	return nil
}
