package artifactcache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/artifactcache/auth"
	"github.com/meigma/artifactcache/store"
)

// Default limits, matching the common deployment of this cache.
const (
	DefaultMaxItemSize  = 100 << 20 // 100 MiB per entry
	DefaultMaxTotalSize = 10 << 30  // 10 GiB budget
	DefaultTTL          = 7 * 24 * time.Hour
)

// Engine composes the entry store, size ledger, token verifier, and
// eviction planner into the four operations exposed to the boundary
// layer: Read, Write, DeleteOne, and PurgeAll.
//
// The engine holds no locks across operations; concurrency control is
// delegated to the store's primitives. Concurrent first-writes to the
// same hash are resolved by the store's conditional set-if-absent: at
// most one writer's bytes survive and the loser observes ErrConflict.
type Engine struct {
	entries  *Entries
	ledger   *Ledger
	verifier *auth.Verifier

	maxItemSize  int64
	maxTotalSize int64
	ttl          time.Duration

	logger  *zap.Logger
	metrics *Metrics

	// fetchGroup deduplicates concurrent reads of the same hash,
	// preventing redundant store fetches during cache hit storms.
	fetchGroup singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxItemSize sets the per-entry size limit in bytes.
func WithMaxItemSize(n int64) Option {
	return func(e *Engine) {
		e.maxItemSize = n
	}
}

// WithMaxTotalSize sets the total-size budget in bytes.
func WithMaxTotalSize(n int64) Option {
	return func(e *Engine) {
		e.maxTotalSize = n
	}
}

// WithTTL sets the retention window applied to new entries.
func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.entries.now = now
	}
}

// New creates an Engine backed by kv, with keys namespaced under
// keyPrefix and credentials classified by verifier.
func New(kv store.Client, keyPrefix string, verifier *auth.Verifier, opts ...Option) *Engine {
	e := &Engine{
		entries:      NewEntries(kv, keyPrefix),
		ledger:       NewLedger(kv, keyPrefix),
		verifier:     verifier,
		maxItemSize:  DefaultMaxItemSize,
		maxTotalSize: DefaultMaxTotalSize,
		ttl:          DefaultTTL,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Entries exposes the entry store for reporting queries that bypass the
// engine's write path.
func (e *Engine) Entries() *Entries {
	return e.entries
}

// Ledger exposes the size ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Ping verifies the backing store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.entries.kv.Ping(ctx)
}

// Read returns the blob for hash. The credential must grant read access.
// A successful read touches the entry's lastAccessed stamp; a touch
// failure is logged and does not fail the read.
func (e *Engine) Read(ctx context.Context, hash, credential string) ([]byte, error) {
	if !e.verifier.Verify(credential).CanRead() {
		return nil, ErrForbidden
	}

	v, err, _ := e.fetchGroup.Do(hash, func() (any, error) {
		return e.entries.Fetch(ctx, hash)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metrics.readMiss()
			return nil, ErrNotFound
		}
		return nil, err
	}
	data := v.([]byte)

	if err := e.entries.Touch(ctx, hash); err != nil {
		e.logger.Warn("touch failed",
			zap.String("hash", hash),
			zap.Error(err))
	}
	e.metrics.readHit()
	return data, nil
}

// Write admits a new entry. The credential must grant write access; the
// hash must not already exist; declaredLength must be positive, within
// the per-item limit, and equal to len(data). Before persisting, the
// engine evicts oldest-accessed entries as needed so the ledger stays
// within the total-size budget after the write.
func (e *Engine) Write(ctx context.Context, hash, credential string, data []byte, declaredLength int64) error {
	if !e.verifier.Verify(credential).CanWrite() {
		return ErrForbidden
	}

	exists, err := e.entries.Exists(ctx, hash)
	if err != nil {
		return err
	}
	if exists {
		e.metrics.writeConflict()
		return ErrConflict
	}

	if declaredLength <= 0 {
		return ErrBadRequest
	}
	if declaredLength > e.maxItemSize {
		return ErrPayloadTooLarge
	}
	if int64(len(data)) != declaredLength {
		return ErrBadRequest
	}

	if err := e.evictFor(ctx, declaredLength); err != nil {
		return err
	}

	if err := e.entries.Store(ctx, hash, data, e.ttl); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost the first-write race to a concurrent writer.
			e.metrics.writeConflict()
			return ErrConflict
		}
		return err
	}

	total, err := e.ledger.Add(ctx, declaredLength)
	if err != nil {
		return err
	}
	e.metrics.writeAccepted(declaredLength, total)
	return nil
}

// evictFor frees space for an incoming write of size bytes. Each planned
// entry is deleted individually; a failed deletion is logged and its size
// excluded from the ledger correction, so the ledger never drops below
// the bytes actually freed.
func (e *Engine) evictFor(ctx context.Context, size int64) error {
	total, err := e.ledger.Total(ctx)
	if err != nil {
		return err
	}

	plan, err := planEviction(ctx, e.entries, total, e.maxTotalSize, size)
	if err != nil {
		return err
	}
	if plan.empty() {
		return nil
	}

	var freedBytes int64
	var freedEntries int64
	for _, candidate := range plan.entries {
		if _, err := e.entries.Delete(ctx, candidate.hash); err != nil {
			e.logger.Warn("evict failed, skipping entry",
				zap.String("hash", candidate.hash),
				zap.Error(err))
			continue
		}
		freedBytes += candidate.size
		freedEntries++
	}
	if freedBytes > 0 {
		if _, err := e.ledger.Add(ctx, -freedBytes); err != nil {
			return err
		}
	}

	e.logger.Info("evicted entries",
		zap.Int64("entries", freedEntries),
		zap.Int64("bytes", freedBytes),
		zap.Int64("incoming", size))
	e.metrics.evicted(freedEntries, freedBytes)
	return nil
}

// DeleteOne removes a single entry. It is idempotent and administrative:
// token gating for it is a boundary-layer policy, not an engine rule.
// The entry's size is subtracted from the ledger only when the blob was
// actually live.
func (e *Engine) DeleteOne(ctx context.Context, hash string) error {
	meta, err := e.entries.Metadata(ctx, hash)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	removed, err := e.entries.Delete(ctx, hash)
	if err != nil {
		return err
	}
	if removed && meta.Size > 0 {
		if _, err := e.ledger.Add(ctx, -meta.Size); err != nil {
			return err
		}
	}
	return nil
}

// PurgeAll removes every entry, resets the ledger to zero, and returns
// the number of entries removed.
func (e *Engine) PurgeAll(ctx context.Context) (int64, error) {
	count, err := e.entries.PurgeAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.ledger.Reset(ctx); err != nil {
		return 0, err
	}
	e.logger.Info("purged all entries", zap.Int64("entries", count))
	return count, nil
}
