package config

import (
	"testing"
	"time"
)

func clearCacheEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "REDIS_URL", "KEY_PREFIX", "CACHE_TTL",
		"MAX_ITEM_SIZE", "MAX_TOTAL_CACHE_SIZE",
		"AUTH_SECRET_KEY", "READ_ONLY_TOKEN", "READ_WRITE_TOKEN",
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearCacheEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, DefaultListen)
	}
	if cfg.RedisURL != DefaultRedisURL {
		t.Errorf("RedisURL = %q, want %q", cfg.RedisURL, DefaultRedisURL)
	}
	if cfg.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", cfg.TTL, DefaultTTL)
	}
	if cfg.MaxItemSize != DefaultMaxItemSize {
		t.Errorf("MaxItemSize = %d, want %d", cfg.MaxItemSize, DefaultMaxItemSize)
	}
	if cfg.MaxTotalSize != DefaultMaxTotalSize {
		t.Errorf("MaxTotalSize = %d, want %d", cfg.MaxTotalSize, DefaultMaxTotalSize)
	}
	if cfg.KeyPrefix != "" {
		t.Errorf("KeyPrefix = %q, want empty", cfg.KeyPrefix)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearCacheEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_URL", "redis://cache.internal:6380")
	t.Setenv("KEY_PREFIX", "ci:")
	t.Setenv("CACHE_TTL", "3600")
	t.Setenv("MAX_ITEM_SIZE", "1048576")
	t.Setenv("MAX_TOTAL_CACHE_SIZE", "10485760")
	t.Setenv("AUTH_SECRET_KEY", "s3cret")
	t.Setenv("READ_ONLY_TOKEN", "ro")
	t.Setenv("READ_WRITE_TOKEN", "rw")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":8080")
	}
	if cfg.RedisURL != "redis://cache.internal:6380" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.KeyPrefix != "ci:" {
		t.Errorf("KeyPrefix = %q, want %q", cfg.KeyPrefix, "ci:")
	}
	if cfg.TTL != time.Hour {
		t.Errorf("TTL = %v, want %v", cfg.TTL, time.Hour)
	}
	if cfg.MaxItemSize != 1048576 {
		t.Errorf("MaxItemSize = %d, want %d", cfg.MaxItemSize, 1048576)
	}
	if cfg.MaxTotalSize != 10485760 {
		t.Errorf("MaxTotalSize = %d, want %d", cfg.MaxTotalSize, 10485760)
	}
	if cfg.SecretKey != "s3cret" || cfg.ReadOnlyToken != "ro" || cfg.ReadWriteToken != "rw" {
		t.Errorf("credentials = %q/%q/%q", cfg.SecretKey, cfg.ReadOnlyToken, cfg.ReadWriteToken)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"zero ttl", "CACHE_TTL", "0"},
		{"negative ttl", "CACHE_TTL", "-5"},
		{"non-numeric item size", "MAX_ITEM_SIZE", "100MB"},
		{"zero total size", "MAX_TOTAL_CACHE_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCacheEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("FromEnv() with %s=%q succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestFromEnvItemSizeExceedsBudget(t *testing.T) {
	clearCacheEnv(t)
	t.Setenv("MAX_ITEM_SIZE", "200")
	t.Setenv("MAX_TOTAL_CACHE_SIZE", "100")

	if _, err := FromEnv(); err == nil {
		t.Fatal("FromEnv() succeeded, want error for item size above budget")
	}
}
