package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

// RedisKVRepository stores values under prefixed Redis keys without expiry.
type RedisKVRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisKVRepository constructs a Redis-backed key-value repository.
func NewRedisKVRepository(client *redis.Client, prefix string) *RedisKVRepository {
	return &RedisKVRepository{client: client, prefix: prefix}
}

// Get returns the stored value or appErrors.ErrCacheMiss.
func (r *RedisKVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set stores value under key.
func (r *RedisKVRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetMany writes every value inside a MULTI/EXEC block.
func (r *RedisKVRepository) SetMany(ctx context.Context, values map[string][]byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, r.prefix+key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set many: %w", err)
	}
	return nil
}
