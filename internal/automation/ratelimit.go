package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadengine/backend/internal/models"
)

// RateLimiter enforces the per-supplier-and-channel rolling send cap with a
// Redis sorted set per counter: member = job id, score = send timestamp.
// Reservation happens atomically in a Lua script, which closes the
// count-then-act race between concurrent jobs for the same counter, and the
// counter survives process restarts.
type RateLimiter struct {
	redis         *redis.Client
	reserveScript *redis.Script
}

// reserveLuaScript prunes entries older than the window, then admits the new
// member only when the remaining count is below the cap. Returns 1 when
// capacity was reserved.
const reserveLuaScript = `
local key = KEYS[1]
local member = ARGV[1]
local now = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local max = tonumber(ARGV[4])

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)

local count = redis.call("ZCARD", key)
if count >= max then
    return 0
end

redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return 1
`

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:         client,
		reserveScript: redis.NewScript(reserveLuaScript),
	}
}

func NewRateLimiterFromURL(redisURL string) (*RateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRateLimiter(redis.NewClient(opts)), nil
}

func rateKey(supplierID, channel string) string {
	return fmt.Sprintf("ratelimit:%s:%s", supplierID, channel)
}

// Reserve claims one send slot for the job. Returns false when the trailing
// window already holds the configured maximum.
func (r *RateLimiter) Reserve(ctx context.Context, limit models.RateLimit, jobID string, now time.Time) (bool, error) {
	res, err := r.reserveScript.Run(ctx, r.redis,
		[]string{rateKey(limit.SupplierID, limit.Channel)},
		jobID,
		now.UnixMilli(),
		limit.Window().Milliseconds(),
		limit.MaxSends,
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Release frees a reservation after a failed delivery so the attempt does not
// count against the cap.
func (r *RateLimiter) Release(ctx context.Context, limit models.RateLimit, jobID string) error {
	return r.redis.ZRem(ctx, rateKey(limit.SupplierID, limit.Channel), jobID).Err()
}
