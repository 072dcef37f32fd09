// Package cache wraps go-redis with key prefixing and JSON values.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// Options configures the redis client
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to redis and pings it
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Helper namespaces keys under a prefix. A nil client turns writes into no-ops and
// reads into ErrCacheNotAvailable, so callers degrade to their source of truth.
type Helper struct {
	client *redis.Client
	prefix string
}

// NewHelper creates a helper for keys under prefix
func NewHelper(client *redis.Client, prefix string) *Helper {
	return &Helper{client: client, prefix: prefix}
}

// Key returns the full redis key
func (h *Helper) Key(key string) string {
	return h.prefix + key
}

// Get unmarshals the cached JSON value into dest
func (h *Helper) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := h.GetString(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// Set stores value as JSON
func (h *Helper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if h.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	return h.client.Set(ctx, h.Key(key), data, ttl).Err()
}

// SetString stores a raw string
func (h *Helper) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if h.client == nil {
		return nil
	}
	return h.client.Set(ctx, h.Key(key), value, ttl).Err()
}

// GetString reads a raw string
func (h *Helper) GetString(ctx context.Context, key string) (string, error) {
	if h.client == nil {
		return "", ErrCacheNotAvailable
	}
	result, err := h.client.Get(ctx, h.Key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheNotFound
		}
		return "", fmt.Errorf("cache get error: %w", err)
	}
	return result, nil
}

// Delete removes keys
func (h *Helper) Delete(ctx context.Context, keys ...string) error {
	if h.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = h.Key(k)
	}
	return h.client.Del(ctx, full...).Err()
}

// Exists reports whether key is present
func (h *Helper) Exists(ctx context.Context, key string) (bool, error) {
	if h.client == nil {
		return false, ErrCacheNotAvailable
	}
	n, err := h.client.Exists(ctx, h.Key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return n > 0, nil
}
