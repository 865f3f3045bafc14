// Package store defines the key-value primitives the cache engine consumes.
//
// The engine never talks to a concrete backend directly; it is wired with a
// Client at construction time. Two implementations ship with this module:
// store/redis for production and store/memory for tests and single-node
// deployments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key does not exist.
var ErrNotFound = errors.New("store: not found")

// Client is the minimal key-value contract required by the cache engine.
//
// Implementations must be safe for concurrent use. A zero ttl on Set or
// SetNX means no expiry.
type Client interface {
	// Get returns the raw bytes stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key with the given ttl, overwriting any
	// existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value at key only if the key does not exist.
	// It reports whether the value was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Exists returns how many of the given keys exist.
	Exists(ctx context.Context, keys ...string) (int64, error)

	// Del removes the given keys and returns how many were removed.
	// Deleting a missing key is not an error.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Keys returns all keys matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// HGetAll returns all fields of the hash stored at key. A missing
	// key yields an empty map, not an error.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HSet writes the given fields into the hash stored at key,
	// creating it if necessary.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// Expire sets the ttl of key and reports whether the key exists.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IncrBy atomically adds delta to the integer stored at key
	// (treating a missing key as 0) and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the client.
	Close() error
}
