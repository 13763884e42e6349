// Package cache defines the TTL cache capability used by the persona
// read/write path.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value cache with per-entry TTLs. Get reports a miss with
// ok=false rather than an error; errors are reserved for transport
// failures.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
