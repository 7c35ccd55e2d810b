// Package cache defines the port interface for caching.
//
// Only knowledge content (FAQ passages, catalog snippets) is ever cached.
// Per-turn artifacts — drafts and review verdicts — are recomputed in full
// on every turn and must not pass through this interface.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
