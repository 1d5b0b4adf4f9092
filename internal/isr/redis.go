package isr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "plantpedia:page:"

// RedisStore keeps pages as JSON values. Retention bounds how long a page
// survives without being rewritten; zero keeps pages forever.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisClient builds a client with pool settings suited to page reads.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewRedisStore wraps a client.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

// Ping verifies the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Page, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Page{}, false, nil
		}
		return Page{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return Page{}, false, fmt.Errorf("decode page %s: %w", key, err)
	}
	return p, true, nil
}

func (s *RedisStore) Put(ctx context.Context, page Page) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", page.Key, err)
	}
	ttl := s.retention
	if !page.ExpiresAt.IsZero() {
		until := time.Until(page.ExpiresAt)
		if until <= 0 {
			return nil
		}
		if ttl <= 0 || until < ttl {
			ttl = until
		}
	}
	if err := s.client.Set(ctx, redisKeyPrefix+page.Key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
