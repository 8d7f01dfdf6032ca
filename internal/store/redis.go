package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// redisScanCount is the COUNT hint passed to SCAN; a var so tests can force
// multi-page listings.
var redisScanCount = int64(100)

// RedisKV stores each record under its key as a plain string value. Prefix
// listing maps directly onto SCAN with a MATCH pattern; the SCAN cursor is
// carried as the page cursor and cursor 0 marks the listing complete.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to Redis using a redis:// URL and verifies
// connectivity with a ping.
func NewRedisKV(ctx context.Context, url string) (*RedisKV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisKV{client: client}, nil
}

// NewRedisKVWithClient wraps an existing client; used by tests.
func NewRedisKVWithClient(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Get fetches the value stored under key.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get key %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key with no expiry, overwriting any previous value.
func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("put key %s: %w", key, err)
	}
	return nil
}

// ListPage returns one SCAN page of keys matching prefix.
func (r *RedisKV) ListPage(ctx context.Context, prefix, cursor string) (Page, error) {
	var scanCursor uint64
	if cursor != "" {
		parsed, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return Page{}, fmt.Errorf("invalid list cursor %q: %w", cursor, err)
		}
		scanCursor = parsed
	}

	keys, next, err := r.client.Scan(ctx, scanCursor, prefix+"*", redisScanCount).Result()
	if err != nil {
		return Page{}, fmt.Errorf("scan keys: %w", err)
	}

	page := Page{Keys: keys, Complete: next == 0}
	if !page.Complete {
		page.Cursor = strconv.FormatUint(next, 10)
	}
	return page, nil
}

// Ping verifies the connection.
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connection pool. The context is unused; the
// redis client closes synchronously.
func (r *RedisKV) Close(context.Context) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
