package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in redis as JSON values with a TTL
// backstop, plus a ZSET index scored by expiry so List does not need
// a keyspace scan.
//
// The TTL is a safety net only; the engine enforces the idle timeout
// from LastActiveAt and the sweeper evicts sessions the TTL has not
// yet caught.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore wraps an existing client. ttl should comfortably
// exceed the configured idle timeout.
func NewRedisStore(client *redis.Client, ttl time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "ussd:session:",
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(phoneNumber string) string {
	return s.prefix + phoneNumber
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) Get(ctx context.Context, phoneNumber string) (Session, error) {
	val, err := s.client.Get(ctx, s.key(phoneNumber)).Result()
	if err != nil {
		if err == redis.Nil {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("session: redis get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return Session{}, fmt.Errorf("session: decode %s: %w", phoneNumber, err)
	}
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", sess.PhoneNumber, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sess.PhoneNumber), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(time.Now().Add(s.ttl).Unix()),
		Member: sess.PhoneNumber,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis put: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, phoneNumber string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(phoneNumber))
	pipe.ZRem(ctx, s.indexKey(), phoneNumber)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Session, error) {
	// Lazy index cleanup: drop members whose backstop TTL has passed.
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("session: prune index: %w", err)
	}

	phones, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("session: list index: %w", err)
	}

	out := make([]Session, 0, len(phones))
	for _, phone := range phones {
		sess, err := s.Get(ctx, phone)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Value expired between ZRANGE and GET; drop the stale
				// index entry.
				_ = s.client.ZRem(ctx, s.indexKey(), phone).Err()
				continue
			}
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}
