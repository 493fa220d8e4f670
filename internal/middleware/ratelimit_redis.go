package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitKeyPrefix = "ratelimit:"

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = now + window
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    end
    return {0, 0, math.floor(resetAt / 1000)}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('PEXPIRE', key, window + 10000)

return {1, limit - count - 1, math.floor((now + window) / 1000)}
`)

// RedisRateLimiter shares counters across instances. When Redis fails the
// check is answered by the in-process fallback instead.
type RedisRateLimiter struct {
	client   redis.Scripter
	fallback *RateLimiter
}

var _ Limiter = (*RedisRateLimiter)(nil)

func NewRedisRateLimiter(client redis.Scripter, fallback *RateLimiter) *RedisRateLimiter {
	if fallback == nil {
		fallback = NewRateLimiter()
	}
	return &RedisRateLimiter{client: client, fallback: fallback}
}

func (rl *RedisRateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, resetAt int64) {
	now := time.Now().UnixMilli()

	result, err := rateLimitScript.Run(ctx, rl.client, []string{rateLimitKeyPrefix + key}, now, window.Milliseconds(), limit).Int64Slice()
	if err != nil || len(result) != 3 {
		log.Warn().Err(err).Str("key", key).Msg("redis rate limit check failed, using local limiter")
		return rl.fallback.Check(ctx, key, limit, window)
	}

	return result[0] == 1, int(result[1]), result[2]
}
