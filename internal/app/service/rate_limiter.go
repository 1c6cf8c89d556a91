package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// windowStore is the port behind the limiter: it accounts one request
// against the key's live window and reports the resulting point count, the
// time left in the window, and whether the request was admitted.
type windowStore interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (points int64, ttl time.Duration, allowed bool, err error)
}

// RateLimiter bounds request volume per client key using counted, expiring
// windows. It is protective, not correctness-critical: a store fault fails
// open so legitimate traffic is never blocked on infrastructure.
type RateLimiter struct {
	store  windowStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter returns a limiter backed by the given Redis client.
func NewRateLimiter(rdb *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		store:  &redisWindowStore{rdb: rdb},
		logger: logger,
		now:    time.Now,
	}
}

// Admit checks the client key against its window. The first request of a
// fresh window creates it with one point; subsequent requests increment
// until the limit, after which requests are denied without touching the
// window, with its expiry as the retry hint.
func (l *RateLimiter) Admit(ctx context.Context, key string, limit int, window time.Duration) Decision {
	points, ttl, allowed, err := l.store.Take(ctx, key, limit, window)
	if err != nil {
		l.logger.Error("rate limit store error, failing open",
			zap.Error(err), zap.String("key", key))
		return Decision{Allowed: true, Limit: limit, Remaining: limit}
	}

	remaining := limit - int(points)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}
}

// takeScript accounts a request in one round trip. A saturated window is
// read-only on deny; the expiry is set exactly once, when the window is
// created.
var takeScript = redis.NewScript(`
local points = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if points >= limit then
	return {points, redis.call("PTTL", KEYS[1]), 0}
end
points = redis.call("INCR", KEYS[1])
if points == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {points, redis.call("PTTL", KEYS[1]), 1}
`)

type redisWindowStore struct {
	rdb *redis.Client
}

func (s *redisWindowStore) Take(ctx context.Context, key string, limit int, window time.Duration) (int64, time.Duration, bool, error) {
	res, err := takeScript.Run(ctx, s.rdb, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, false, err
	}
	if len(res) != 3 {
		return 0, 0, false, redis.Nil
	}

	points := res[0]
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}
	return points, ttl, res[2] == 1, nil
}
