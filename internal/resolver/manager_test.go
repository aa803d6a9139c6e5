package resolver

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/davekyte/docdock/internal/cache"
	"github.com/davekyte/docdock/internal/cachekey"
	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/fetch"
)

// recorder captures callback deliveries for assertions.
type recorder struct {
	mu        sync.Mutex
	paths     []string
	fromCache []bool
	errs      []error
	progress  []int64
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnPathReady: func(path string, fromCache bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.paths = append(r.paths, path)
			r.fromCache = append(r.fromCache, fromCache)
		},
		OnProgress: func(received, total int64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, received)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
	}
}

func (r *recorder) snapshot() (paths []string, fromCache []bool, errs []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...), append([]bool(nil), r.fromCache...), append([]error(nil), r.errs...)
}

func newTestManager(t *testing.T, client *http.Client) (*Manager, *cache.Disk) {
	t.Helper()
	disk, err := cache.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	m := New(nil, disk, cachekey.SHA256{}, fetch.NewDispatcher(client, fstest.MapFS{}))
	t.Cleanup(m.Close)
	return m, disk
}

func waitDone(t *testing.T, task *Task) {
	t.Helper()
	if task == nil {
		t.Fatalf("expected a task")
	}
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not finish")
	}
}

func TestManagerCacheFlow(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "%PDF-1.4 network")
	}))
	defer srv.Close()

	m, disk := newTestManager(t, srv.Client())
	desc := data.SourceDescriptor{URI: srv.URL + "/doc.pdf", CacheEnabled: true}

	t.Run("miss downloads and commits", func(t *testing.T) {
		rec := &recorder{}
		waitDone(t, m.Start(desc, rec.callbacks()))

		paths, fromCache, errs := rec.snapshot()
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if len(paths) != 1 || fromCache[0] {
			t.Fatalf("expected one fresh delivery, got paths=%v fromCache=%v", paths, fromCache)
		}
		if filepath.Dir(paths[0]) != disk.Dir() {
			t.Fatalf("delivery should point into the cache dir: %s", paths[0])
		}
		got, err := os.ReadFile(paths[0])
		if err != nil || string(got) != "%PDF-1.4 network" {
			t.Fatalf("committed content mismatch: %v", err)
		}
	})

	t.Run("hit skips the network", func(t *testing.T) {
		before := hits.Load()
		rec := &recorder{}
		waitDone(t, m.Start(desc, rec.callbacks()))

		paths, fromCache, errs := rec.snapshot()
		if len(errs) != 0 || len(paths) != 1 || !fromCache[0] {
			t.Fatalf("expected a cache hit, got paths=%v fromCache=%v errs=%v", paths, fromCache, errs)
		}
		if hits.Load() != before {
			t.Fatalf("cache hit must not touch the network")
		}
	})

	t.Run("cache disabled re-acquires into scratch", func(t *testing.T) {
		before := hits.Load()
		rec := &recorder{}
		uncached := desc
		uncached.CacheEnabled = false
		waitDone(t, m.Start(uncached, rec.callbacks()))

		paths, fromCache, errs := rec.snapshot()
		if len(errs) != 0 || len(paths) != 1 || fromCache[0] {
			t.Fatalf("expected a fresh delivery, got paths=%v fromCache=%v errs=%v", paths, fromCache, errs)
		}
		if hits.Load() != before+1 {
			t.Fatalf("disabled cache must hit the network")
		}
		if filepath.Dir(paths[0]) == disk.Dir() {
			t.Fatalf("uncached output must not land in the committed namespace: %s", paths[0])
		}
	})
}

func TestManagerSupersede(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "slow.pdf") {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		_, _ = io.WriteString(w, "%PDF-1.4")
	}))
	defer srv.Close()
	defer close(release)

	m, _ := newTestManager(t, srv.Client())

	slow := &recorder{}
	slowTask := m.Start(data.SourceDescriptor{URI: srv.URL + "/slow.pdf"}, slow.callbacks())

	fast := &recorder{}
	waitDone(t, m.Start(data.SourceDescriptor{URI: srv.URL + "/fast.pdf"}, fast.callbacks()))
	waitDone(t, slowTask)

	paths, _, errs := slow.snapshot()
	if len(paths) != 0 || len(errs) != 0 {
		t.Fatalf("superseded task must stay silent, got paths=%v errs=%v", paths, errs)
	}
	paths, _, errs = fast.snapshot()
	if len(errs) != 0 || len(paths) != 1 {
		t.Fatalf("replacement task should deliver, got paths=%v errs=%v", paths, errs)
	}
}

func TestManagerCancelAndClose(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	t.Run("cancel produces no callbacks", func(t *testing.T) {
		m, _ := newTestManager(t, srv.Client())
		rec := &recorder{}
		task := m.Start(data.SourceDescriptor{URI: srv.URL}, rec.callbacks())
		m.CancelCurrent()
		waitDone(t, task)

		paths, _, errs := rec.snapshot()
		if len(paths) != 0 || len(errs) != 0 {
			t.Fatalf("cancelled task must stay silent, got paths=%v errs=%v", paths, errs)
		}
	})

	t.Run("closed manager refuses new work", func(t *testing.T) {
		m, _ := newTestManager(t, srv.Client())
		rec := &recorder{}
		task := m.Start(data.SourceDescriptor{URI: srv.URL}, rec.callbacks())
		m.Close()
		waitDone(t, task)

		if got := m.Start(data.SourceDescriptor{URI: srv.URL}, rec.callbacks()); got != nil {
			t.Fatalf("closed manager must not start tasks")
		}
		paths, _, errs := rec.snapshot()
		if len(paths) != 0 || len(errs) != 0 {
			t.Fatalf("no callbacks after close, got paths=%v errs=%v", paths, errs)
		}
	})
}

func TestManagerCloseWaitsForCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, _ := newTestManager(t, &http.Client{})
	started := make(chan struct{})
	var finished atomic.Bool
	task := m.Start(data.SourceDescriptor{URI: "file://" + path}, Callbacks{
		OnPathReady: func(string, bool) {
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
		},
	})

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("delivery never started")
	}
	m.Close()
	if !finished.Load() {
		t.Fatalf("Close returned while a delivery callback was still running")
	}
	waitDone(t, task)
}

func TestManagerValidation(t *testing.T) {
	m, _ := newTestManager(t, &http.Client{})
	rec := &recorder{}
	waitDone(t, m.Start(data.SourceDescriptor{URI: "   "}, rec.callbacks()))

	_, _, errs := rec.snapshot()
	if len(errs) != 1 || !errors.Is(errs[0], data.ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", errs)
	}
}

func TestManagerLocalPassthrough(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(orig, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, disk := newTestManager(t, &http.Client{})
	rec := &recorder{}
	waitDone(t, m.Start(data.SourceDescriptor{URI: "file://" + orig, CacheEnabled: true}, rec.callbacks()))

	paths, fromCache, errs := rec.snapshot()
	if len(errs) != 0 || len(paths) != 1 {
		t.Fatalf("expected one delivery, got paths=%v errs=%v", paths, errs)
	}
	if paths[0] != orig || fromCache[0] {
		t.Fatalf("passthrough must hand back the original path: %v %v", paths, fromCache)
	}
	if _, err := os.Stat(disk.Filepath(cachekey.Derive(cachekey.SHA256{}, data.SourceDescriptor{URI: "file://" + orig}))); !os.IsNotExist(err) {
		t.Fatalf("passthrough must not copy into the cache")
	}
}
