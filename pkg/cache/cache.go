package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys. Implementations must
// be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is reported with ok == false
	// and a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any connections held by the cache.
	Close() error
}

// Default time-to-live values.
const (
	// TTLResult applies to solved pipeline results. Results are a pure
	// function of the problem and options, so they stay valid for long.
	TTLResult = 30 * 24 * time.Hour

	// TTLRender applies to rendered graph images.
	TTLRender = 7 * 24 * time.Hour
)
