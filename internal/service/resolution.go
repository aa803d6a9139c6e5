package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/fetch"
	"github.com/davekyte/docdock/internal/repo"
	"github.com/davekyte/docdock/internal/resolver"
	"github.com/davekyte/docdock/internal/source"
)

// Resolution orchestrates descriptor validation, persistence, and the
// per-consumer single-flight resolution managers.
type Resolution interface {
	List(ctx context.Context) (data.Resolutions, error)
	Get(ctx context.Context, id string) (*data.Resolution, error)
	Add(ctx context.Context, consumerID string, src data.SourceDescriptor) (*data.Resolution, error)
	Cancel(ctx context.Context, id string) (*data.Resolution, error)
	DropConsumer(ctx context.Context, consumerID string) error
}

// ManagerFactory builds the resolver for a new consumer instance.
type ManagerFactory func() *resolver.Manager

type consumerState struct {
	mgr *resolver.Manager

	// mu serializes the supersede+start sequence and guards currentID, so
	// two concurrent Adds for one consumer cannot invert their start order
	// at the manager.
	mu        sync.Mutex
	currentID string
}

type resolution struct {
	repo   repo.ResolutionRepo
	events fetch.Reporter
	newMgr ManagerFactory

	mu        sync.Mutex // guards the consumers map only
	consumers map[string]*consumerState
}

func NewResolution(store repo.ResolutionRepo, events fetch.Reporter, newMgr ManagerFactory) Resolution {
	return &resolution{
		repo:      store,
		events:    events,
		newMgr:    newMgr,
		consumers: make(map[string]*consumerState),
	}
}

func (s *resolution) List(ctx context.Context) (data.Resolutions, error) {
	return s.repo.List(ctx)
}

func (s *resolution) Get(ctx context.Context, id string) (*data.Resolution, error) {
	return s.repo.Get(ctx, id)
}

func (s *resolution) Add(ctx context.Context, consumerID string, src data.SourceDescriptor) (*data.Resolution, error) {
	if strings.TrimSpace(consumerID) == "" {
		return nil, data.ErrMissingConsumer
	}
	src, err := source.Normalize(src)
	if err != nil {
		return nil, err
	}

	rec := &data.Resolution{
		ID:         uuid.NewString(),
		ConsumerID: consumerID,
		Source:     src,
		Status:     data.StatusQueued,
		CreatedAt:  time.Now(),
	}
	saved, err := s.repo.Add(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	st := s.consumers[consumerID]
	if st == nil {
		st = &consumerState{mgr: s.newMgr()}
		s.consumers[consumerID] = st
	}
	s.mu.Unlock()

	// Held across the manager Start so the task that supersedes at the
	// manager is the same one recorded as current here.
	st.mu.Lock()
	defer st.mu.Unlock()

	superseded := st.currentID
	st.currentID = saved.ID

	if superseded != "" {
		// The superseded task goes quiet on its own; only its record still
		// has to reflect the cancellation.
		s.settle(ctx, superseded, fetch.Event{ResolutionID: superseded, Type: fetch.EventCancelled})
	}

	id := saved.ID
	s.events.Report(fetch.Event{ResolutionID: id, Type: fetch.EventStart})
	st.mgr.Start(src, resolver.Callbacks{
		OnPathReady: func(path string, fromCache bool) {
			s.clearCurrent(consumerID, id)
			s.events.Report(fetch.Event{ResolutionID: id, Type: fetch.EventComplete, Path: path, FromCache: fromCache})
		},
		OnProgress: func(received, total int64) {
			s.events.Report(fetch.Event{ResolutionID: id, Type: fetch.EventProgress, Progress: &fetch.Progress{Received: received, Total: total}})
		},
		OnError: func(err error) {
			s.clearCurrent(consumerID, id)
			s.events.Report(fetch.Event{ResolutionID: id, Type: fetch.EventFailed, Error: err.Error()})
		},
	})

	return saved, nil
}

// Cancel requests cancellation of an in-flight resolution. Cancelling an
// already terminal resolution is a no-op and returns the record unchanged.
func (s *resolution) Cancel(ctx context.Context, id string) (*data.Resolution, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.Terminal() {
		return rec, nil
	}

	s.mu.Lock()
	st := s.consumers[rec.ConsumerID]
	s.mu.Unlock()

	if st != nil {
		st.mu.Lock()
		active := st.currentID == id
		if active {
			st.currentID = ""
		}
		st.mu.Unlock()
		if active {
			st.mgr.CancelCurrent()
		}
	}

	return s.settle(ctx, id, fetch.Event{ResolutionID: id, Type: fetch.EventCancelled})
}

// DropConsumer tears a consumer down: its manager stops delivering
// callbacks and its in-flight resolution, if any, is recorded as cancelled.
func (s *resolution) DropConsumer(ctx context.Context, consumerID string) error {
	s.mu.Lock()
	st := s.consumers[consumerID]
	delete(s.consumers, consumerID)
	s.mu.Unlock()

	if st == nil {
		return data.ErrNotFound
	}

	st.mu.Lock()
	current := st.currentID
	st.currentID = ""
	st.mu.Unlock()

	st.mgr.Close()
	if current != "" {
		if _, err := s.settle(ctx, current, fetch.Event{ResolutionID: current, Type: fetch.EventCancelled}); err != nil {
			return err
		}
	}
	return nil
}

func (s *resolution) clearCurrent(consumerID, id string) {
	s.mu.Lock()
	st := s.consumers[consumerID]
	s.mu.Unlock()
	if st == nil {
		return
	}
	st.mu.Lock()
	if st.currentID == id {
		st.currentID = ""
	}
	st.mu.Unlock()
}

// settle writes the terminal status synchronously so API responses reflect
// it, then reports the event for subscribers and metrics. The reconciler's
// first-terminal-wins rule makes the double write harmless.
func (s *resolution) settle(ctx context.Context, id string, e fetch.Event) (*data.Resolution, error) {
	rec, err := s.repo.Update(ctx, id, func(r *data.Resolution) error {
		if r.Status.Terminal() {
			return nil
		}
		r.Status = data.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Report(e)
	return rec, nil
}
