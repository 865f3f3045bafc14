package artifactcache

import (
	"strconv"
	"time"
)

// ContentType is the media type recorded for every entry. The cache
// stores opaque blobs; no other media type is ever used.
const ContentType = "application/octet-stream"

// Metadata describes one cache entry. CreatedAt is set once on write;
// LastAccessed moves forward on every successful read.
type Metadata struct {
	Hash         string
	Size         int64
	CreatedAt    time.Time
	LastAccessed time.Time
	ContentType  string
}

// Metadata records are stored as hash fields in the key-value store.
const (
	fieldHash         = "hash"
	fieldSize         = "size"
	fieldCreatedAt    = "createdAt"
	fieldLastAccessed = "lastAccessed"
	fieldContentType  = "contentType"
)

const timeLayout = time.RFC3339Nano

func (m Metadata) fields() map[string]string {
	return map[string]string{
		fieldHash:         m.Hash,
		fieldSize:         strconv.FormatInt(m.Size, 10),
		fieldCreatedAt:    m.CreatedAt.UTC().Format(timeLayout),
		fieldLastAccessed: m.LastAccessed.UTC().Format(timeLayout),
		fieldContentType:  m.ContentType,
	}
}

// parseMetadata reconstructs a Metadata record from loosely-typed store
// fields. Missing or malformed fields degrade to defaults rather than
// failing: a missing lastAccessed falls back to createdAt, a missing
// createdAt to the zero time, an unparsable size to 0. The second return
// is false when the record carries no hash at all and should be ignored.
func parseMetadata(fields map[string]string) (Metadata, bool) {
	hash := fields[fieldHash]
	if hash == "" {
		return Metadata{}, false
	}

	m := Metadata{
		Hash:        hash,
		ContentType: fields[fieldContentType],
	}
	if m.ContentType == "" {
		m.ContentType = ContentType
	}
	if size, err := strconv.ParseInt(fields[fieldSize], 10, 64); err == nil && size >= 0 {
		m.Size = size
	}
	m.CreatedAt = parseTime(fields[fieldCreatedAt])
	m.LastAccessed = parseTime(fields[fieldLastAccessed])
	if m.LastAccessed.IsZero() {
		m.LastAccessed = m.CreatedAt
	}
	return m, true
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// keyset builds the store keys for one logical cache namespace.
type keyset struct {
	prefix string
}

func (k keyset) entry(hash string) string { return k.prefix + "cache:" + hash }
func (k keyset) meta(hash string) string  { return k.prefix + "meta:" + hash }
func (k keyset) entryPattern() string     { return k.prefix + "cache:*" }
func (k keyset) metaPattern() string      { return k.prefix + "meta:*" }

// The ledger key deliberately does not match entryPattern, so purge scans
// never count or delete the counter itself.
func (k keyset) ledger() string { return k.prefix + "total_size" }
