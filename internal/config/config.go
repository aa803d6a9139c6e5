package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries process-level settings. Everything is sourced from the
// environment with defaults suitable for a local run.
type Config struct {
	Addr     string
	CacheDir string
	AssetDir string
	LogFile  string
	Repo     string // "memory" or "postgres"

	CleanInterval time.Duration
	MaxFileAge    time.Duration // 0 disables age-based cleanup
	MaxCacheBytes int64         // 0 disables the cache size budget
}

// FromEnv builds a Config from DOCDOCK_* env vars.
func FromEnv() Config {
	return Config{
		Addr:          getenv("DOCDOCK_ADDR", ":9090"),
		CacheDir:      getenv("DOCDOCK_CACHE_DIR", "cache"),
		AssetDir:      getenv("DOCDOCK_ASSET_DIR", "assets"),
		LogFile:       os.Getenv("DOCDOCK_LOG_FILE"),
		Repo:          getenv("DOCDOCK_REPO", "memory"),
		CleanInterval: secondsEnv("DOCDOCK_CLEAN_INTERVAL_SEC", 300),
		MaxFileAge:    secondsEnv("DOCDOCK_MAX_FILE_AGE_SEC", 0),
		MaxCacheBytes: int64Env("DOCDOCK_MAX_CACHE_BYTES", 0),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func secondsEnv(k string, def int64) time.Duration {
	return time.Duration(int64Env(k, def)) * time.Second
}

func int64Env(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return def
}
