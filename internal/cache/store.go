// Package cache provides the key-value store the reconciler writes persisted
// operations into. The agent is the sole writer of its key namespace but does
// not own the store lifecycle; the daemon constructs and closes it.
package cache

import "context"

// Store is a minimal string key-value store. Implementations must tolerate
// concurrent calls from a single writer; no transactional guarantees are
// required.
type Store interface {
	// Get retrieves the value for key.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrNotFound is returned when a key doesn't exist.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "cache key not found: " + e.Key
}

// IsNotFound returns true if the error is ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
