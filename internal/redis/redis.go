package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"console/internal/storage"
	"console/pkg/client/redis"

	redis2 "github.com/redis/go-redis/v9"
)

type repositoryRedis struct {
	Client redis.Client
	Prefix string
}

func NewRepositoryRedis(client redis.Client, prefix string) storage.Storage {
	return &repositoryRedis{Client: client, Prefix: prefix}
}

func (r *repositoryRedis) key(k string) string {
	return fmt.Sprintf("%s:%s", r.Prefix, k)
}

func (r *repositoryRedis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis2.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (r *repositoryRedis) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.Client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *repositoryRedis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	err := r.Client.Del(ctx, full...).Err()
	if err != nil && !errors.Is(err, redis2.Nil) {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
