package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"music-relay/core/models"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "music-relay:prediction:"

// RedisStore keeps predictions as JSON documents in Redis. Keys never expire.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisConfig configures the Redis-backed store
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Prediction, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("prediction %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching prediction %s: %w", id, err)
	}

	var p models.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding prediction %s: %w", id, err)
	}
	return &p, nil
}

func (s *RedisStore) Set(ctx context.Context, prediction *models.Prediction) error {
	if prediction == nil || prediction.ID == "" {
		return fmt.Errorf("prediction id is required")
	}
	data, err := json.Marshal(prediction)
	if err != nil {
		return fmt.Errorf("encoding prediction %s: %w", prediction.ID, err)
	}
	if err := s.client.Set(ctx, s.key(prediction.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("saving prediction %s: %w", prediction.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("deleting prediction %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
