package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores snapshots as plain string values in Redis.
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	maxBytes  int
}

// RedisOptions configures RedisStorage.
type RedisOptions struct {
	KeyPrefix string
	// TTL of zero keeps snapshots without expiration.
	TTL      time.Duration
	MaxBytes int
}

// NewRedisStorage wraps an existing client.
func NewRedisStorage(client *redis.Client, opts RedisOptions) *RedisStorage {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "routine:"
	}
	return &RedisStorage{
		client:    client,
		keyPrefix: prefix,
		ttl:       opts.TTL,
		maxBytes:  opts.MaxBytes,
	}
}

// Get implements Storage.
func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("selection: redis get %s: %w", key, err)
	}
	return val, nil
}

// Set implements Storage.
func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if s.maxBytes > 0 && len(value) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrQuotaExceeded, len(value), s.maxBytes)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("selection: redis set %s: %w", key, err)
	}
	return nil
}
