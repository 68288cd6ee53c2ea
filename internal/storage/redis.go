package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/config"
)

// RedisStore keeps the same KV contract on a redis backend. It serves as
// an optional fast tier in front of SQLite; records never expire because
// the store is the durability medium, not a cache with TTL semantics.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient creates a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// SetMulti uses MULTI/EXEC so all pairs land in one shot.
func (s *RedisStore) SetMulti(ctx context.Context, pairs map[string]string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	pipe := s.client.TxPipeline()
	for key, value := range pairs {
		pipe.Set(ctx, key, value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set multi: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis remove %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) MultiRemove(ctx context.Context, keys []string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis multi remove: %w", err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
