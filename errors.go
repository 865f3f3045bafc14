package artifactcache

import "errors"

// Sentinel errors returned by the cache engine. The HTTP boundary maps
// these onto status codes; everything else is a server error.
var (
	// ErrForbidden is returned when the credential does not grant the
	// permission an operation requires.
	ErrForbidden = errors.New("artifactcache: forbidden")

	// ErrConflict is returned when a write targets a hash that already
	// has a live entry.
	ErrConflict = errors.New("artifactcache: entry already exists")

	// ErrBadRequest is returned when the declared content length is
	// missing, non-positive, or does not match the payload.
	ErrBadRequest = errors.New("artifactcache: invalid content length")

	// ErrPayloadTooLarge is returned when the declared content length
	// exceeds the per-item size limit.
	ErrPayloadTooLarge = errors.New("artifactcache: payload too large")

	// ErrNotFound is returned when a read targets an absent hash.
	ErrNotFound = errors.New("artifactcache: entry not found")

	// ErrStoreUnavailable wraps failures of the underlying key-value
	// store. The engine does not retry; retry policy belongs to the
	// caller or the store client.
	ErrStoreUnavailable = errors.New("artifactcache: store unavailable")
)
