package cache

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Cleaner removes stale cache content in the background: orphaned temp
// files, entries older than a max age, and the oldest entries once the cache
// exceeds its byte budget. All removals are best-effort.
type Cleaner struct {
	log       *slog.Logger
	dir       string
	interval  time.Duration
	maxAge    time.Duration // 0 disables age-based removal
	maxBytes  int64         // 0 disables the size budget
	tempGrace time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

type fileInfo struct {
	path    string
	modTime time.Time
	size    int64
}

func NewCleaner(log *slog.Logger, dir string, interval, maxAge time.Duration, maxBytes int64) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	c := &Cleaner{
		log:       log,
		dir:       dir,
		interval:  interval,
		maxAge:    maxAge,
		maxBytes:  maxBytes,
		tempGrace: time.Hour,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	go c.run()

	return c
}

// Stop terminates the cleanup loop and waits for an in-flight sweep.
func (c *Cleaner) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Cleaner) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.cleanup(time.Now())

		select {
		case <-ticker.C:
			continue
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cleaner) cleanup(now time.Time) {
	files, err := c.loadAllFiles()
	if err != nil {
		c.log.Warn("couldn't load cache files to clean", "err", err)
		return
	}

	toRemove := c.filesToRemove(files, now)
	if len(toRemove) == 0 {
		return
	}

	var removed int
	var freed int64
	for _, f := range toRemove {
		if err := os.Remove(f.path); err != nil {
			c.log.Error("couldn't remove cache file", "path", f.path, "err", err)
			continue
		}
		removed++
		freed += f.size
	}
	if removed > 0 {
		c.log.Info("cache cleanup finished", "removed", removed, "freed_bytes", freed)
	}
}

func (c *Cleaner) loadAllFiles() (files []fileInfo, err error) {
	err = filepath.Walk(c.dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, fileInfo{
			path:    path,
			modTime: info.ModTime(),
			size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// filesToRemove picks temp leftovers past the grace period, entries past
// maxAge, and then the oldest remaining entries until the byte budget holds.
func (c *Cleaner) filesToRemove(files []fileInfo, now time.Time) []fileInfo {
	var remove []fileInfo
	var kept []fileInfo

	for _, f := range files {
		switch {
		case strings.HasSuffix(f.path, TempSuffix) && now.Sub(f.modTime) > c.tempGrace:
			remove = append(remove, f)
		case c.maxAge > 0 && now.Sub(f.modTime) > c.maxAge:
			remove = append(remove, f)
		default:
			kept = append(kept, f)
		}
	}

	if c.maxBytes > 0 {
		var total int64
		for _, f := range kept {
			total += f.size
		}
		if total > c.maxBytes {
			sort.Slice(kept, func(i, j int) bool {
				return kept[i].modTime.Before(kept[j].modTime)
			})
			for _, f := range kept {
				if total <= c.maxBytes {
					break
				}
				remove = append(remove, f)
				total -= f.size
			}
		}
	}

	return remove
}
