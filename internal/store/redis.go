package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// DefaultRedisPrefix namespaces document keys.
const DefaultRedisPrefix = "bizfinder:doc:"

// RedisStore implements Store with one string key per document.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr.
func NewRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, eris.New("redis: empty address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return NewRedisWithClient(client, prefix), nil
}

// NewRedisWithClient wraps an existing client. Close closes it.
func NewRedisWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Migrate only checks connectivity; redis has no schema.
func (s *RedisStore) Migrate(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx).Err(), "redis: migrate")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	body, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: load %s", name)
	}
	return body, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, body []byte) error {
	err := s.client.Set(ctx, s.prefix+name, body, 0).Err()
	return eris.Wrapf(err, "redis: save %s", name)
}
