package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/redis/go-redis/v9"
)

// windowScript increments the counter of the current window and arms its
// expiry on the first hit, atomically.
var windowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter shared by every server instance
// pointing at the same Redis. Keys look like "ratelimit:<client>:<window>".
type RedisLimiter struct {
	client *redis.Client
	logger *logger.Logger
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter connects to Redis and creates a limiter for requestsPerSecond
func NewRedisLimiter(addr, password string, db int, requestsPerSecond float64) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}

	return NewRedisLimiterFromClient(client, requestsPerSecond), nil
}

// NewRedisLimiterFromClient wraps an existing client. Rates below one per
// second stretch the window to 1/rate, rounded up to whole seconds since
// window keys and expiries are in seconds. The per-window limit is rounded
// down, so the effective rate never exceeds requestsPerSecond except that
// every window admits at least one request.
func NewRedisLimiterFromClient(client *redis.Client, requestsPerSecond float64) *RedisLimiter {
	window := time.Second
	if requestsPerSecond < 1.0 {
		window = time.Duration(math.Ceil(1/requestsPerSecond)) * time.Second
	}

	limit := int64(math.Floor(requestsPerSecond * window.Seconds()))
	if limit < 1 {
		limit = 1
	}

	return &RedisLimiter{
		client: client,
		logger: logger.Nop(),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// WithLogger sets the logger used to report Redis failures
func (rl *RedisLimiter) WithLogger(log *logger.Logger) *RedisLimiter {
	if log != nil {
		rl.logger = log
	}
	return rl
}

// Allow implements Limiter. Redis errors fail open.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) bool {
	windowSeconds := int64(rl.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, rl.now().Unix()/windowSeconds)

	count, err := windowScript.Run(ctx, rl.client, []string{redisKey}, windowSeconds*2).Int64()
	if err != nil {
		rl.logger.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
		return true
	}

	return count <= rl.limit
}

// Close closes the Redis connection
func (rl *RedisLimiter) Close() error {
	if rl.client != nil {
		return rl.client.Close()
	}
	return nil
}
