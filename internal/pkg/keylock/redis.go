package keylock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Redis implements Locker with SET NX PX and a token-checked release.
type Redis struct {
	client       *backend.Client
	prefix       string
	ttl          time.Duration
	pollInterval time.Duration
}

// NewRedis creates a Redis locker. ttl bounds how long a crashed holder blocks the key.
func NewRedis(client *backend.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client:       client,
		prefix:       prefix,
		ttl:          ttl,
		pollInterval: 50 * time.Millisecond,
	}
}

// Lock polls until the key is acquired or ctx is done.
func (l *Redis) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	acquired, err := l.tryAcquire(ctx, lockKey, token)
	if err != nil {
		return nil, err
	}

	if !acquired {
		ticker := time.NewTicker(l.pollInterval)
		defer ticker.Stop()

		for !acquired {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %s: %w", ErrLockAcquire, key, ctx.Err())
			case <-ticker.C:
				acquired, err = l.tryAcquire(ctx, lockKey, token)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	return func(ctx context.Context) error {
		return l.client.Eval(ctx, unlockScript, []string{lockKey}, token).Err()
	}, nil
}

func (l *Redis) tryAcquire(ctx context.Context, lockKey, token string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	return ok, nil
}
