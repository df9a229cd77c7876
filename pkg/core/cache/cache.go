// Package cache memoises remote lookups (company search, page fetches).
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store is a byte-oriented key/value cache with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Memoize returns the cached value for key or computes, stores and returns it.
// Cache failures never fail the call.
func Memoize[T any](ctx context.Context, store Store, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var result T
	if store == nil {
		return fn()
	}

	if cached, ok := store.Get(ctx, key); ok {
		if err := json.Unmarshal(cached, &result); err == nil {
			return result, nil
		}
	}

	result, err := fn()
	if err != nil {
		return result, err
	}

	if data, err := json.Marshal(result); err == nil {
		store.Set(ctx, key, data, ttl)
	}
	return result, nil
}

// =============================================================================
// REDIS
// =============================================================================

// Redis stores entries in a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr (host:port). Keys are namespaced with prefix.
func NewRedis(addr, password string, db int, prefix string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
	}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	r.client.Set(ctx, r.prefix+key, value, ttl)
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
