package rate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// The trim, count, and conditional record run as one script so two
// concurrent evaluations for the same client cannot both squeeze into the
// last budget slot.
const allowScript = `
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local count = redis.call("ZCARD", KEYS[1])
if count >= tonumber(ARGV[2]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 1
`

var allowLua = redis.NewScript(allowScript)

// Limiter enforces a per-client sliding-window request budget backed by
// Redis sorted sets.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New creates a [Limiter] backed by the given Redis client. prefix sets
// the key namespace.
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow evaluates the client's window and reports whether this request is
// admitted. A denied request is not recorded: only admitted requests
// consume budget.
func (l *Limiter) Allow(ctx context.Context, clientID string, maxRequests int, window time.Duration) (bool, error) {
	if maxRequests <= 0 {
		return false, nil
	}

	now := l.now().UnixMilli()
	member, err := windowMember(now)
	if err != nil {
		return false, err
	}

	res, err := allowLua.Run(ctx, l.redis,
		[]string{l.key(clientID)},
		now-window.Milliseconds(),
		maxRequests,
		now,
		member,
		window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return res == 1, nil
}

// Attempts returns the number of requests currently inside the client's
// window. Missing keys return zero.
func (l *Limiter) Attempts(ctx context.Context, clientID string, window time.Duration) (int, error) {
	now := l.now().UnixMilli()
	cutoff := strconv.FormatInt(now-window.Milliseconds(), 10)

	if err := l.redis.ZRemRangeByScore(ctx, l.key(clientID), "-inf", cutoff).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, err := l.redis.ZCard(ctx, l.key(clientID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return int(count), nil
}

// Reset clears the client's window. Called after successful authentication.
func (l *Limiter) Reset(ctx context.Context, clientID string) error {
	if err := l.redis.Del(ctx, l.key(clientID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(clientID string) string {
	return l.prefix + ":" + clientID
}

// windowMember builds a unique sorted-set member so two requests landing on
// the same millisecond both count.
func windowMember(nowMillis int64) (string, error) {
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", err
	}
	return strconv.FormatInt(nowMillis, 10) + "-" + hex.EncodeToString(suffix[:]), nil
}
