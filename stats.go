package artifactcache

import (
	"context"
	"slices"
	"time"
)

// ListItem is one row of the administrative cache listing.
type ListItem struct {
	Hash         string    `json:"hash"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// Stats aggregates the cache for the dashboard.
type Stats struct {
	TotalItems int64  `json:"totalItems"`
	TotalSize  int64  `json:"totalSize"`
	OldestItem string `json:"oldestItem,omitempty"`
	NewestItem string `json:"newestItem,omitempty"`
}

// List returns every entry, newest createdAt first. This is a reporting
// query over the metadata scan; it does not go through the engine's
// read path and does not touch access stamps.
func (e *Entries) List(ctx context.Context) ([]ListItem, error) {
	metas, err := e.scanMetadata(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(metas))
	for _, m := range metas {
		items = append(items, ListItem{
			Hash:         m.Hash,
			Size:         m.Size,
			CreatedAt:    m.CreatedAt,
			LastAccessed: m.LastAccessed,
		})
	}
	slices.SortStableFunc(items, func(a, b ListItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return items, nil
}

// Stats sums sizes and finds the oldest and newest entries by createdAt.
func (e *Entries) Stats(ctx context.Context) (Stats, error) {
	metas, err := e.scanMetadata(ctx)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	var oldest, newest time.Time
	for _, m := range metas {
		s.TotalItems++
		s.TotalSize += m.Size
		if s.OldestItem == "" || m.CreatedAt.Before(oldest) {
			oldest = m.CreatedAt
			s.OldestItem = m.Hash
		}
		if s.NewestItem == "" || m.CreatedAt.After(newest) {
			newest = m.CreatedAt
			s.NewestItem = m.Hash
		}
	}
	return s, nil
}
