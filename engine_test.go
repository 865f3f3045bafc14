package artifactcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/artifactcache/auth"
	"github.com/meigma/artifactcache/store/memory"
)

const (
	testReadToken  = "ro-token"
	testWriteToken = "rw-token"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	verifier := auth.NewVerifier("engine-test-secret", testReadToken, testWriteToken)
	base := []Option{
		WithMaxItemSize(1000),
		WithMaxTotalSize(1000),
		WithClock(stepClock(time.Unix(1000, 0), time.Second)),
	}
	return New(memory.New(), "t:", verifier, append(base, opts...)...)
}

func TestEngineRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t)

	content := []byte("build output")
	require.NoError(t, e.Write(ctx, "h1", testWriteToken, content, int64(len(content))))

	// Reading with a read-only token returns the exact bytes.
	got, err := e.Read(ctx, "h1", testReadToken)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// The read moved lastAccessed past createdAt.
	meta, err := e.Entries().Metadata(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, meta.LastAccessed.After(meta.CreatedAt), "read did not touch lastAccessed")
}

func TestEngineAuthorization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t)
	content := []byte("x")

	// No credential.
	err := e.Write(ctx, "h1", "", content, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.Read(ctx, "h1", "")
	assert.ErrorIs(t, err, ErrForbidden)

	// Read-only token cannot write.
	err = e.Write(ctx, "h1", testReadToken, content, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	// Write token can read and write.
	require.NoError(t, e.Write(ctx, "h1", testWriteToken, content, 1))
	_, err = e.Read(ctx, "h1", testWriteToken)
	assert.NoError(t, err)
}

func TestEngineWriteOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Write(ctx, "h1", testWriteToken, []byte("first"), 5))

	err := e.Write(ctx, "h1", testWriteToken, []byte("other"), 5)
	assert.ErrorIs(t, err, ErrConflict)

	// The original entry is untouched.
	got, err := e.Read(ctx, "h1", testReadToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestEngineWriteValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t) // per-item limit 1000

	tests := []struct {
		name     string
		data     []byte
		declared int64
		want     error
	}{
		{"zero length", nil, 0, ErrBadRequest},
		{"negative length", nil, -1, ErrBadRequest},
		{"over limit", make([]byte, 1001), 1001, ErrPayloadTooLarge},
		{"declared shorter than body", make([]byte, 10), 5, ErrBadRequest},
		{"declared longer than body", make([]byte, 5), 10, ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Write(ctx, "h-"+tt.name, testWriteToken, tt.data, tt.declared)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// None of the rejected writes may have moved the ledger.
	total, err := e.Ledger().Total(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEngineEvictionScenario(t *testing.T) {
	t.Parallel()

	// Budget 1000: H1 (600) fits; H2 (500) forces a deficit of 100,
	// evicting H1 entirely. Ledger ends at 500 and H1 is gone.
	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Write(ctx, "H1", testWriteToken, make([]byte, 600), 600))
	total, err := e.Ledger().Total(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 600, total)

	require.NoError(t, e.Write(ctx, "H2", testWriteToken, make([]byte, 500), 500))
	total, err = e.Ledger().Total(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 500, total)

	_, err = e.Read(ctx, "H1", testReadToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Read(ctx, "H2", testReadToken)
	assert.NoError(t, err)
}

func TestEngineEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Write(ctx, "a", testWriteToken, make([]byte, 400), 400))
	require.NoError(t, e.Write(ctx, "b", testWriteToken, make([]byte, 400), 400))

	// Reading "a" makes "b" the least recently used.
	_, err := e.Read(ctx, "a", testReadToken)
	require.NoError(t, err)

	require.NoError(t, e.Write(ctx, "c", testWriteToken, make([]byte, 400), 400))

	_, err = e.Read(ctx, "b", testReadToken)
	assert.ErrorIs(t, err, ErrNotFound, "expected b to be evicted")
	_, err = e.Read(ctx, "a", testReadToken)
	assert.NoError(t, err, "expected a to survive eviction")
}

func TestEngineBudgetEnforcement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t) // budget 1000

	hashes := []string{"w1", "w2", "w3", "w4", "w5"}
	for _, hash := range hashes {
		require.NoError(t, e.Write(ctx, hash, testWriteToken, make([]byte, 300), 300))
		total, err := e.Ledger().Total(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, total, int64(1000), "budget exceeded after writing %s", hash)
	}
}

func TestEngineSizeConservation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Write(ctx, "h1", testWriteToken, make([]byte, 100), 100))
	require.NoError(t, e.Write(ctx, "h2", testWriteToken, make([]byte, 200), 200))

	require.NoError(t, e.DeleteOne(ctx, "h1"))
	total, err := e.Ledger().Total(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 200, total)

	// Deleting again must not subtract twice.
	require.NoError(t, e.DeleteOne(ctx, "h1"))
	total, err = e.Ledger().Total(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 200, total)
}

func TestEnginePurgeAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Write(ctx, "h1", testWriteToken, make([]byte, 100), 100))
	require.NoError(t, e.Write(ctx, "h2", testWriteToken, make([]byte, 100), 100))

	count, err := e.PurgeAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	total, err := e.Ledger().Total(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = e.Read(ctx, "h1", testReadToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngineListAndStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newTestEngine(t)

	require.NoError(t, e.Write(ctx, "older", testWriteToken, make([]byte, 100), 100))
	require.NoError(t, e.Write(ctx, "newer", testWriteToken, make([]byte, 250), 250))

	items, err := e.Entries().List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].Hash, "list must be newest first")

	stats, err := e.Entries().Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalItems)
	assert.EqualValues(t, 350, stats.TotalSize)
	assert.Equal(t, "older", stats.OldestItem)
	assert.Equal(t, "newer", stats.NewestItem)
}
