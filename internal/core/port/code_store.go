package port

import (
	"context"
	"time"
)

// CodeStore is a TTL key-value store backing the verification-code protocol.
// Keys expire on their own; a missing key reads as empty with no error.
type CodeStore interface {
	// Get returns the value for key, or ("", false, nil) when absent/expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key with the given TTL, replacing any old value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes only when the key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Increment atomically increments the counter at key, setting the TTL
	// only when the key is created by this call, and returns the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// TTL returns the remaining lifetime of key, or 0 when absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
