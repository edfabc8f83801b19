package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login_fail:"

// LoginLimiter counts failed logins per email in a fixed window.
// Key format: login_fail:<email>
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter returns a limiter allowing maxAttempts failures per window.
// A maxAttempts of zero or less disables throttling.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func (l *LoginLimiter) enabled() bool {
	return l.client != nil && l.maxAttempts > 0 && l.window > 0
}

// Allow reports whether another attempt is permitted for email.
func (l *LoginLimiter) Allow(ctx context.Context, email string) (bool, error) {
	if !l.enabled() {
		return true, nil
	}
	n, err := l.client.Get(ctx, key(email)).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("login limiter get: %w", err)
	}
	return n < l.maxAttempts, nil
}

// recordFailure increments the counter and gives it a TTL in one step. A key
// left without one is repaired on the next failure.
var recordFailure = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RecordFailure increments the counter; the first failure starts the window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	if err := recordFailure.Run(ctx, l.client, []string{key(email)}, l.window.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("login limiter record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	return l.client.Del(ctx, key(email)).Err()
}

func key(email string) string {
	return keyPrefix + email
}
