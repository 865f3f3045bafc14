package artifactcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/meigma/artifactcache/store"
)

// Ledger maintains the aggregate byte count of all live entries as a
// single atomically-updated counter in the store.
//
// The ledger is never the source of truth for which entries exist: TTL
// expiry in the store removes entries without notifying it, so it can
// overcount. Negative excursions are clamped to zero and treated as
// bookkeeping corrections.
type Ledger struct {
	kv  store.Client
	key string
}

// NewLedger creates a ledger stored under the given key prefix.
func NewLedger(kv store.Client, keyPrefix string) *Ledger {
	return &Ledger{kv: kv, key: keyset{prefix: keyPrefix}.ledger()}
}

// Total returns the current counter value. A missing key reads as 0.
func (l *Ledger) Total(ctx context.Context) (int64, error) {
	raw, err := l.kv.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger: read total: %w: %w", ErrStoreUnavailable, err)
	}
	total, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger: malformed total %q: %w", raw, err)
	}
	if total < 0 {
		return 0, nil
	}
	return total, nil
}

// Add applies delta atomically and returns the new total. A result below
// zero is clamped: the counter is reset to 0 and 0 is returned.
func (l *Ledger) Add(ctx context.Context, delta int64) (int64, error) {
	total, err := l.kv.IncrBy(ctx, l.key, delta)
	if err != nil {
		return 0, fmt.Errorf("ledger: apply delta %d: %w: %w", delta, ErrStoreUnavailable, err)
	}
	if total < 0 {
		if err := l.Reset(ctx); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return total, nil
}

// Reset sets the counter to 0.
func (l *Ledger) Reset(ctx context.Context) error {
	if err := l.kv.Set(ctx, l.key, []byte("0"), 0); err != nil {
		return fmt.Errorf("ledger: reset: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
