package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker implements Locker with SET NX PX plus a value-checked
// release, so a holder whose lock already expired cannot delete a
// successor's lock.
//
// Acquisition polls with a short interval; USSD sessions are
// human-paced so contention on one key is rare and brief (aggregator
// retries of the same keystroke).
type RedisLocker struct {
	client *redis.Client
	prefix string

	// retryInterval is how often a blocked acquirer re-attempts SET NX.
	retryInterval time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "ussd:lock:"
	}
	return &RedisLocker{
		client:        client,
		prefix:        prefix,
		retryInterval: 50 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session: lock ttl must be > 0")
	}
	lockKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("session: lock acquire: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}
