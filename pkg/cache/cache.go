// Package cache stores registry responses for the duration of one run.
//
// Resolution touches the same package from many parents, and the
// description and dep-graph commands reload metadata the update command
// already fetched. [MemoryCache] keeps raw response bodies in memory so
// each URL is fetched once per process. Nothing is persisted between
// runs. [NullCache] disables caching in tests.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored bytes and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Close() error
}
