package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig controls the Redis response cache applied to the public case
// list.  Case data changes only when an administrator edits it, so even a
// short TTL absorbs most of the website's read traffic.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
	MaxBody int // largest response body to cache, in bytes
}

// LoadCacheConfig reads the CACHE_* environment variables with defaults
// suitable for the case list.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 60*time.Second),
		Prefix:  getenv("CACHE_PREFIX", "cases"),
		MaxBody: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// Shared env helpers for the optional-subsystem configs in this package.

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
