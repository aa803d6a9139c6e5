package resolver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/davekyte/docdock/internal/cache"
	"github.com/davekyte/docdock/internal/cachekey"
	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/fetch"
	"github.com/davekyte/docdock/internal/metrics"
	"github.com/davekyte/docdock/internal/source"
)

// Callbacks is the consumer-facing delivery surface of a resolution.
//
// OnPathReady fires at most once per attempt. OnProgress fires only while
// bytes are arriving, in non-decreasing order. OnError fires exactly once on
// failure. Nothing is delivered after the owning consumer is closed or the
// task has been superseded; cancellation produces no callbacks at all.
type Callbacks struct {
	OnPathReady func(path string, fromCache bool)
	OnProgress  func(received, total int64)
	OnError     func(err error)
}

// Manager supervises at most one in-flight resolution for a single consumer
// instance. Starting a new resolution cancels the previous task before the
// new acquisition begins.
type Manager struct {
	log      *slog.Logger
	cache    *cache.Disk
	hasher   cachekey.Hasher
	dispatch *fetch.Dispatcher

	mu      sync.Mutex
	current *Task
	closed  bool
}

// Task is one resolution attempt. A superseded task is cancelled, never
// reused; its identity is compared before any late-arriving callback may
// publish.
type Task struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	received int64 // high-water mark, keeps progress monotonic
}

// ID returns the attempt's unique id.
func (t *Task) ID() string { return t.id }

// Done is closed when the task has finished running, on any outcome.
func (t *Task) Done() <-chan struct{} { return t.done }

func New(log *slog.Logger, disk *cache.Disk, hasher cachekey.Hasher, dispatch *fetch.Dispatcher) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{log: log, cache: disk, hasher: hasher, dispatch: dispatch}
}

// Start begins resolving desc. Any in-flight task is cancelled first, so the
// single-flight invariant holds. Returns nil when the manager is closed.
func (m *Manager) Start(desc data.SourceDescriptor, cb Callbacks) *Task {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if m.current != nil {
		m.current.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{id: uuid.NewString(), ctx: ctx, cancel: cancel, done: make(chan struct{})}
	m.current = t
	m.mu.Unlock()

	metrics.ActiveResolutions.Inc()
	go func() {
		defer metrics.ActiveResolutions.Dec()
		defer close(t.done)
		m.run(t, desc, cb)
	}()
	return t
}

// CancelCurrent cancels the in-flight task, if any. Cancelling an already
// finished task is a no-op.
func (m *Manager) CancelCurrent() {
	m.mu.Lock()
	t := m.current
	m.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

// Close tears the consumer down: the in-flight task is cancelled and Close
// waits for it to finish, so no callback is still executing once Close
// returns.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	t := m.current
	m.current = nil
	m.mu.Unlock()
	if t != nil {
		t.cancel()
		<-t.done
	}
}

// live reports whether t may still publish to the consumer.
func (m *Manager) live(t *Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.current == t && t.ctx.Err() == nil
}

func (m *Manager) run(t *Task, desc data.SourceDescriptor, cb Callbacks) {
	desc, err := source.Normalize(desc)
	if err != nil {
		m.fail(t, cb, err)
		return
	}

	key := cachekey.Derive(m.hasher, desc)
	if desc.CacheEnabled {
		if path, ok := m.cache.Lookup(key, desc.Expiration()); ok {
			m.ready(t, cb, path, true)
			return
		}
	}

	dest := m.cache.Filepath(key)
	if !desc.CacheEnabled {
		dest = m.cache.ScratchPath(t.id, key)
	}

	strategy := m.dispatch.Select(desc.URI)
	res, err := strategy.Fetch(t.ctx, desc, dest, func(received, total int64) {
		if received <= t.received {
			return
		}
		t.received = received
		if cb.OnProgress != nil && m.live(t) {
			cb.OnProgress(received, total)
		}
	})
	if err != nil {
		if fetch.Cancelled(err) {
			// Superseded or torn down: stop quietly, cleanup already done.
			return
		}
		m.fail(t, cb, err)
		return
	}

	m.ready(t, cb, res.LocalPath, res.FromCache)
}

func (m *Manager) ready(t *Task, cb Callbacks, path string, fromCache bool) {
	if !m.live(t) {
		return
	}
	m.log.Info("resolved", "task", t.id, "path", path, "from_cache", fromCache)
	if cb.OnPathReady != nil {
		cb.OnPathReady(path, fromCache)
	}
}

func (m *Manager) fail(t *Task, cb Callbacks, err error) {
	if !m.live(t) {
		return
	}
	m.log.Error("resolution failed", "task", t.id, "err", err)
	if cb.OnError != nil {
		cb.OnError(err)
	}
}
