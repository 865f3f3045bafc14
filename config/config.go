// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults applied when an environment variable is unset.
const (
	DefaultListen       = ":3000"
	DefaultRedisURL     = "redis://localhost:6379"
	DefaultTTL          = 7 * 24 * time.Hour
	DefaultMaxItemSize  = 100 << 20 // 100 MiB
	DefaultMaxTotalSize = 10 << 30  // 10 GiB
)

// Config carries everything the server and CLI need. It is constructed
// once and passed explicitly; nothing reads the environment after load.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string

	// RedisURL is the redis:// connection string for the backing store.
	RedisURL string

	// KeyPrefix namespaces every store key.
	KeyPrefix string

	// TTL is the retention window applied to new entries.
	TTL time.Duration

	// MaxItemSize is the per-entry size limit in bytes.
	MaxItemSize int64

	// MaxTotalSize is the total-size budget in bytes.
	MaxTotalSize int64

	// SecretKey signs and verifies custom tokens.
	SecretKey string

	// ReadOnlyToken and ReadWriteToken are the static secrets.
	ReadOnlyToken  string
	ReadWriteToken string
}

// FromEnv builds a Config from the process environment, applying
// defaults for anything unset.
//
// Recognized variables: PORT, REDIS_URL, KEY_PREFIX, CACHE_TTL (seconds),
// MAX_ITEM_SIZE (bytes), MAX_TOTAL_CACHE_SIZE (bytes), AUTH_SECRET_KEY,
// READ_ONLY_TOKEN, READ_WRITE_TOKEN.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Listen:         DefaultListen,
		RedisURL:       envOr("REDIS_URL", DefaultRedisURL),
		KeyPrefix:      os.Getenv("KEY_PREFIX"),
		TTL:            DefaultTTL,
		MaxItemSize:    DefaultMaxItemSize,
		MaxTotalSize:   DefaultMaxTotalSize,
		SecretKey:      envOr("AUTH_SECRET_KEY", "artifact-cache-secret-key"),
		ReadOnlyToken:  envOr("READ_ONLY_TOKEN", "readonly"),
		ReadWriteToken: envOr("READ_WRITE_TOKEN", "readwrite"),
	}

	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("config: invalid PORT %q", port)
		}
		cfg.Listen = fmt.Sprintf(":%d", n)
	}
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		secs, err := strconv.ParseInt(ttl, 10, 64)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("config: invalid CACHE_TTL %q", ttl)
		}
		cfg.TTL = time.Duration(secs) * time.Second
	}
	var err error
	if cfg.MaxItemSize, err = envBytes("MAX_ITEM_SIZE", cfg.MaxItemSize); err != nil {
		return nil, err
	}
	if cfg.MaxTotalSize, err = envBytes("MAX_TOTAL_CACHE_SIZE", cfg.MaxTotalSize); err != nil {
		return nil, err
	}
	if cfg.MaxItemSize > cfg.MaxTotalSize {
		return nil, fmt.Errorf("config: MAX_ITEM_SIZE %d exceeds MAX_TOTAL_CACHE_SIZE %d",
			cfg.MaxItemSize, cfg.MaxTotalSize)
	}
	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envBytes(name string, fallback int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: invalid %s %q", name, v)
	}
	return n, nil
}
