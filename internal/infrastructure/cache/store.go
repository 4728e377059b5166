// Package cache persists the last aggregated sales snapshot so it survives
// restarts and can be read by the companion summary without network access.
package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a KeyValueStore when a key has no value
var ErrNotFound = errors.New("cache: key not found")

// KeyValueStore is a durable byte store addressed by string keys
type KeyValueStore interface {
	// Get returns the value of key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error
	// Close releases the backend's resources
	Close() error
}
