package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/davekyte/docdock/internal/metrics"
)

// TempSuffix marks in-flight download files. Temp files live next to their
// final path but are never considered by Lookup, so a cache-path reader only
// ever observes absent or fully committed content.
const TempSuffix = ".part"

// scratchDir holds resolution-scoped outputs for descriptors that opted out
// of caching. It keeps the committed cache namespace flat and clean.
const scratchDir = "scratch"

// Disk resolves cache keys to paths inside a single flat directory and makes
// the hit/miss/expired decision from existing file metadata.
type Disk struct {
	absDir string
}

func NewDisk(dir string) (*Disk, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("couldn't get absolute path: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o777); err != nil {
		return nil, fmt.Errorf("couldn't create cache dir %q: %w", absDir, err)
	}
	if err := os.MkdirAll(filepath.Join(absDir, scratchDir), 0o777); err != nil {
		return nil, fmt.Errorf("couldn't create scratch dir: %w", err)
	}
	return &Disk{absDir: absDir}, nil
}

// Dir returns the absolute cache directory.
func (c *Disk) Dir() string { return c.absDir }

// Filepath returns the final committed path for a cache key.
func (c *Disk) Filepath(key string) string {
	return filepath.Join(c.absDir, key)
}

// ScratchPath returns a resolution-scoped path outside the committed cache
// namespace. attemptID keeps concurrent attempts from colliding.
func (c *Disk) ScratchPath(attemptID, key string) string {
	return filepath.Join(c.absDir, scratchDir, attemptID+"_"+key)
}

// Lookup stats the committed path for key and decides hit or miss. Absent
// files, stat errors and expired entries all report a miss so the caller
// re-acquires; expiration is only ever evaluated against committed entries.
func (c *Disk) Lookup(key string, expiration time.Duration) (string, bool) {
	path := c.Filepath(key)

	info, err := os.Stat(path)
	if err != nil {
		metrics.CacheMisses.Inc()
		return "", false
	}
	if expiration > 0 && time.Now().After(info.ModTime().Add(expiration)) {
		metrics.CacheMisses.Inc()
		return "", false
	}

	metrics.CacheHits.Inc()
	return path, true
}

// Remove deletes the committed entry for key. Entries are removed over time
// by the Cleaner; Remove exists for manual eviction after an error.
func (c *Disk) Remove(key string) error {
	return os.Remove(c.Filepath(key))
}
