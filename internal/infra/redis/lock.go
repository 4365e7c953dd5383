package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	// ErrLockHeld means another owner kept the key for every attempt.
	ErrLockHeld = errors.New("lock is held by another owner")
	// ErrLockNotOwned means the key expired or was taken over before Unlock.
	ErrLockNotOwned = errors.New("lock is not owned by this token")
)

// Locker hands out short leases on a key. The token returned by TryLock is
// required to release the lease.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var _ Locker = (*RedisLocker)(nil)

// RedisLocker leases keys with SET NX and releases them with a
// compare-and-delete script.
type RedisLocker struct {
	cli      *redis.Client
	attempts int
	backoff  time.Duration
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli, attempts: 5, backoff: 50 * time.Millisecond}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token := uuid.NewString()
	for attempt := 1; ; attempt++ {
		acquired, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		switch {
		case err != nil:
			return "", err
		case acquired:
			return token, nil
		case attempt >= l.attempts:
			return "", ErrLockHeld
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
return redis.call("DEL", KEYS[1])`)

// Unlock releases the lease. It returns ErrLockNotOwned when the token no
// longer matches, leaving the current owner's lease in place.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.cli, []string{key}, token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}
