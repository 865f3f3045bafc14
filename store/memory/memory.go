// Package memory provides an in-process store.Client for tests and
// single-node deployments.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/meigma/artifactcache/store"
)

type entry struct {
	value     []byte
	fields    map[string]string
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Client is a map-backed store.Client with lazy TTL expiry.
type Client struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

var _ store.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the time source, for deterministic TTL tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates an empty in-memory client.
func New(opts ...Option) *Client {
	c := &Client{
		data: make(map[string]*entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// live returns the entry at key if it exists and has not expired.
// Expired entries are removed on access. Callers must hold mu.
func (c *Client) live(key string) (*entry, bool) {
	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.data, key)
		return nil, false
	}
	return e, true
}

func (c *Client) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok || e.value == nil {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (c *Client) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, ttl)
	return nil
}

func (c *Client) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live(key); ok {
		return false, nil
	}
	c.put(key, value, ttl)
	return true, nil
}

func (c *Client) put(key string, value []byte, ttl time.Duration) {
	stored := make([]byte, len(value))
	copy(stored, value)
	e := &entry{value: stored}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = e
}

func (c *Client) Exists(_ context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := c.live(key); ok {
			n++
		}
	}
	return n, nil
}

func (c *Client) Del(_ context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := c.live(key); ok {
			n++
		}
		delete(c.data, key)
	}
	return n, nil
}

// Keys supports the subset of redis glob patterns the engine uses:
// a literal prefix followed by a trailing "*", or a literal key.
func (c *Client) Keys(_ context.Context, pattern string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	var keys []string
	for key := range c.data {
		if _, ok := c.live(key); !ok {
			continue
		}
		if wildcard && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		} else if !wildcard && key == pattern {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (c *Client) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	e, ok := c.live(key)
	if !ok {
		return out, nil
	}
	for k, v := range e.fields {
		out[k] = v
	}
	return out, nil
}

func (c *Client) HSet(_ context.Context, key string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		e = &entry{fields: make(map[string]string)}
		c.data[key] = e
	}
	if e.fields == nil {
		e.fields = make(map[string]string)
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	return nil
}

func (c *Client) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		return false, nil
	}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	return true, nil
}

func (c *Client) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var current int64
	if e, ok := c.live(key); ok && e.value != nil {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}
	current += delta
	c.put(key, []byte(strconv.FormatInt(current, 10)), 0)
	return current, nil
}

func (c *Client) Ping(context.Context) error {
	return nil
}

func (c *Client) Close() error {
	return nil
}
