// Package artifactcache implements the storage and eviction engine of a
// remote build-artifact cache.
//
// Clients upload opaque content-addressed blobs keyed by a hash and
// retrieve them later; the engine enforces token-based authorization,
// write-once semantics, per-item size limits, and a global size budget
// maintained by least-recently-used eviction triggered on write.
//
// The engine is backed by an external key-value service through the
// store.Client contract. Entry bytes live at one key, entry metadata in a
// hash record at a second key, and the aggregate byte count in a single
// atomically-updated counter. The counter is eventually consistent with
// entry existence: store-level TTL expiry can make it overcount, which is
// corrected by the floor clamp and by eviction scans re-validating
// existence.
package artifactcache
