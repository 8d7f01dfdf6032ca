// Package store provides the key/value persistence layer for group records,
// with interchangeable MongoDB and Redis backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"tg_title_bot/internal/config"
)

// ErrNotFound reports that a key has no stored value. Absence of a record
// means "never configured" and is always recoverable.
var ErrNotFound = errors.New("key not found")

// Page is one slice of a paginated prefix listing. Callers must keep listing
// with the returned cursor until Complete is true.
type Page struct {
	Keys     []string
	Cursor   string
	Complete bool
}

// KV is the logical contract over the persistence backend. Writes have
// last-writer-wins semantics; the backend offers no compare-and-swap.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	ListPage(ctx context.Context, prefix, cursor string) (Page, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects the backend selected by the configuration and verifies
// connectivity with a ping.
func Open(ctx context.Context, cfg config.Config) (KV, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	switch cfg.StoreBackend {
	case config.BackendMongo:
		return NewMongoKV(ctx, cfg)
	case config.BackendRedis:
		return NewRedisKV(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
