package artifactcache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/artifactcache/store"
)

// scanConcurrency bounds parallel metadata reads during full scans.
const scanConcurrency = 16

// Entries persists blob bytes and per-entry metadata, wrapping the raw
// key-value primitives into entry-level operations. It owns the canonical
// bytes and metadata for every hash.
type Entries struct {
	kv   store.Client
	keys keyset
	now  func() time.Time
}

// EntriesOption configures an Entries store.
type EntriesOption func(*Entries)

// WithEntriesClock overrides the time source used for createdAt and
// lastAccessed stamps, for deterministic tests.
func WithEntriesClock(now func() time.Time) EntriesOption {
	return func(e *Entries) {
		e.now = now
	}
}

// NewEntries creates an entry store under the given key prefix.
func NewEntries(kv store.Client, keyPrefix string, opts ...EntriesOption) *Entries {
	e := &Entries{
		kv:   kv,
		keys: keyset{prefix: keyPrefix},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exists reports whether a live entry exists for hash.
func (e *Entries) Exists(ctx context.Context, hash string) (bool, error) {
	n, err := e.kv.Exists(ctx, e.keys.entry(hash))
	if err != nil {
		return false, fmt.Errorf("check entry %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Fetch returns the blob bytes for hash, or ErrNotFound.
func (e *Entries) Fetch(ctx context.Context, hash string) ([]byte, error) {
	data, err := e.kv.Get(ctx, e.keys.entry(hash))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch entry %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	return data, nil
}

// Store persists a new entry with the given ttl, recording
// createdAt = lastAccessed = now. It returns ErrConflict when an entry
// for hash already exists: the blob is written with a conditional
// set-if-absent, so at most one concurrent first-writer succeeds.
func (e *Entries) Store(ctx context.Context, hash string, data []byte, ttl time.Duration) error {
	stored, err := e.kv.SetNX(ctx, e.keys.entry(hash), data, ttl)
	if err != nil {
		return fmt.Errorf("store entry %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	if !stored {
		return ErrConflict
	}

	now := e.now()
	meta := Metadata{
		Hash:         hash,
		Size:         int64(len(data)),
		CreatedAt:    now,
		LastAccessed: now,
		ContentType:  ContentType,
	}
	metaKey := e.keys.meta(hash)
	if err := e.kv.HSet(ctx, metaKey, meta.fields()); err != nil {
		return fmt.Errorf("store metadata %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	if _, err := e.kv.Expire(ctx, metaKey, ttl); err != nil {
		return fmt.Errorf("expire metadata %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	return nil
}

// Touch updates lastAccessed to now, leaving bytes, size, and createdAt
// untouched.
func (e *Entries) Touch(ctx context.Context, hash string) error {
	fields := map[string]string{
		fieldLastAccessed: e.now().UTC().Format(timeLayout),
	}
	if err := e.kv.HSet(ctx, e.keys.meta(hash), fields); err != nil {
		return fmt.Errorf("touch entry %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	return nil
}

// Metadata returns the metadata record for hash, or ErrNotFound.
func (e *Entries) Metadata(ctx context.Context, hash string) (Metadata, error) {
	fields, err := e.kv.HGetAll(ctx, e.keys.meta(hash))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	meta, ok := parseMetadata(fields)
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return meta, nil
}

// Delete removes an entry's bytes and metadata. It is idempotent:
// deleting a missing hash is not an error. It reports whether the blob
// was actually live at deletion time.
func (e *Entries) Delete(ctx context.Context, hash string) (bool, error) {
	removed, err := e.kv.Del(ctx, e.keys.entry(hash))
	if err != nil {
		return false, fmt.Errorf("delete entry %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	if _, err := e.kv.Del(ctx, e.keys.meta(hash)); err != nil {
		return removed > 0, fmt.Errorf("delete metadata %s: %w: %w", hash, ErrStoreUnavailable, err)
	}
	return removed > 0, nil
}

// ListByAccessTime returns metadata for every entry, ordered by
// lastAccessed ascending (oldest first). It is a full scan of metadata
// records, used by eviction planning and the reporting views; reads are
// parallelized with a bounded worker group.
func (e *Entries) ListByAccessTime(ctx context.Context) ([]Metadata, error) {
	items, err := e.scanMetadata(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b Metadata) int {
		if c := a.LastAccessed.Compare(b.LastAccessed); c != 0 {
			return c
		}
		return strings.Compare(a.Hash, b.Hash)
	})
	return items, nil
}

func (e *Entries) scanMetadata(ctx context.Context) ([]Metadata, error) {
	keys, err := e.kv.Keys(ctx, e.keys.metaPattern())
	if err != nil {
		return nil, fmt.Errorf("scan metadata: %w: %w", ErrStoreUnavailable, err)
	}

	var (
		mu    sync.Mutex
		items = make([]Metadata, 0, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			fields, err := e.kv.HGetAll(gctx, key)
			if err != nil {
				return fmt.Errorf("read metadata %s: %w: %w", key, ErrStoreUnavailable, err)
			}
			meta, ok := parseMetadata(fields)
			if !ok {
				// Record expired or was never fully written.
				return nil
			}
			mu.Lock()
			items = append(items, meta)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// PurgeAll deletes every entry and every metadata record, returning the
// number of entries removed.
func (e *Entries) PurgeAll(ctx context.Context) (int64, error) {
	entryKeys, err := e.kv.Keys(ctx, e.keys.entryPattern())
	if err != nil {
		return 0, fmt.Errorf("scan entries: %w: %w", ErrStoreUnavailable, err)
	}
	metaKeys, err := e.kv.Keys(ctx, e.keys.metaPattern())
	if err != nil {
		return 0, fmt.Errorf("scan metadata: %w: %w", ErrStoreUnavailable, err)
	}

	count := int64(len(entryKeys))
	for _, keys := range [][]string{entryKeys, metaKeys} {
		for chunk := range slices.Chunk(keys, 512) {
			if _, err := e.kv.Del(ctx, chunk...); err != nil {
				return 0, fmt.Errorf("purge: %w: %w", ErrStoreUnavailable, err)
			}
		}
	}
	return count, nil
}
