package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// windowScript increments the counter and starts its expiry on the first hit
// of a window, in one round trip.
const windowScript = `local n = redis.call("INCR", KEYS[1])
if n == 1 then redis.call("PEXPIRE", KEYS[1], ARGV[1]) end
return n`

// releaseScript deletes the lock only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// FixedWindowAllow counts a hit against scope and reports whether the count
// is still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.store == nil {
		return false, 0, errNotInitialized
	}
	count, err := c.store.Eval(ctx, windowScript, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate window %s: %w", scope, err)
	}
	return count <= limit, count, nil
}

// AcquireLock returns the token to hand back to ReleaseLock. ok is false when
// someone else holds the lock.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = c.SetNX(ctx, key, token, ttl)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	if c.store == nil {
		return errNotInitialized
	}
	if token == "" {
		return nil
	}
	return c.store.Eval(ctx, releaseScript, []string{key}, token).Err()
}
