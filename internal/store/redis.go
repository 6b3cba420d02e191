package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"weathercache/internal/config"
	"weathercache/internal/models"
)

// RedisStore keeps one string key per record. Keys carry no TTL; records
// live until a range delete removes them.
type RedisStore struct {
	client *redis.Client
	prefix string

	closeOnce sync.Once
	closeErr  error
}

// DialRedisStore connects to Redis and verifies the connection
func DialRedisStore(ctx context.Context, cfg config.RedisConfig, prefix string) (*RedisStore, error) {
	client := redis.NewClient(cfg.ClientOptions())

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)}
	}

	log.Printf("Redis store connected to %s", cfg.Addr)
	return NewRedisStore(client, prefix), nil
}

// NewRedisStore wraps an existing client. Close closes the client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.DailyRecord, bool, error) {
	start := time.Now()

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		observe("get", "redis", key, start, nil)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, observe("get", "redis", key, start, err)
	}

	record, err := decodeRecord(key, data)
	if err != nil {
		return nil, false, observe("get", "redis", key, start, err)
	}
	observe("get", "redis", key, start, nil)
	return record, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, record *models.DailyRecord) error {
	start := time.Now()

	data, err := encodeRecord(key, record)
	if err != nil {
		return observe("put", "redis", key, start, err)
	}

	err = s.client.Set(ctx, s.prefix+key, data, 0).Err()
	return observe("put", "redis", key, start, err)
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()

	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, observe("delete", "redis", key, start, err)
	}
	observe("delete", "redis", key, start, nil)
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}
