package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// loginRateLimitScript implements a sliding window over a sorted set.
// Entries older than the window are pruned, then the attempt is admitted
// only if the remaining count is below the limit.
// ARGV: [1]=now_ms, [2]=window_ms, [3]=limit, [4]=member
var loginRateLimitScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, now - window)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return 1
`)

// LoginRateLimiter throttles OAuth handshake initiations per client IP.
type LoginRateLimiter struct {
	rdb    *goredis.Client
	clock  clockwork.Clock
	limit  int
	window time.Duration
}

// NewLoginRateLimiter creates a new login rate limiter.
// limit: maximum initiations per client IP within the window
// window: sliding window length
func NewLoginRateLimiter(client *Client, clock clockwork.Clock, limit int, window time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		rdb:    client.rdb,
		clock:  clock,
		limit:  limit,
		window: window,
	}
}

// Allow checks if a login initiation is allowed for the client IP.
// Returns true if allowed (attempt recorded), false if rate limited.
func (l *LoginRateLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	key := fmt.Sprintf("rate_limit:login:%s", clientIP)

	result, err := loginRateLimitScript.Run(ctx, l.rdb, []string{key},
		strconv.FormatInt(l.clock.Now().UnixMilli(), 10),
		strconv.FormatInt(l.window.Milliseconds(), 10),
		strconv.Itoa(l.limit),
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return result == 1, nil
}
