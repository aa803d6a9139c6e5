package reconciler

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/fetch"
	"github.com/davekyte/docdock/internal/metrics"
	"github.com/davekyte/docdock/internal/repo"
)

// Reconciler consumes resolution events and updates repository state.
type Reconciler struct {
	repo   repo.ResolutionRepo
	events <-chan fetch.Event
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Reconciler that processes resolution events and mutates the
// repository accordingly.
func New(log *slog.Logger, store repo.ResolutionRepo, events <-chan fetch.Event) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{repo: store, events: events, log: log, ctx: context.Background()}
}

// Run starts the reconciliation loop.
func (r *Reconciler) Run() {
	r.stop = make(chan struct{})
	r.ctx, r.cancel = context.WithCancel(r.ctx)
	// Tag this run with a stable operation_id for easier correlation.
	opID := uuid.NewString()
	r.log = r.log.With("operation_id", opID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.stop:
				return
			case e, ok := <-r.events:
				if !ok {
					return
				}
				r.handle(e)
			}
		}
	}()
}

// Stop terminates the reconciliation loop.
func (r *Reconciler) Stop() {
	if r.stop != nil {
		close(r.stop)
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
	}
}

func (r *Reconciler) handle(e fetch.Event) {
	// Record event type for observability
	metrics.ResolutionEvents.WithLabelValues(strings.ToLower(string(e.Type))).Inc()

	var status data.ResolutionStatus
	switch e.Type {
	case fetch.EventStart:
		status = data.StatusActive
	case fetch.EventComplete:
		status = data.StatusComplete
	case fetch.EventFailed:
		status = data.StatusFailed
	case fetch.EventCancelled:
		status = data.StatusCancelled
	case fetch.EventProgress:
		if e.Progress != nil {
			r.log.Debug("progress event", "id", e.ResolutionID, "received", e.Progress.Received, "total", e.Progress.Total)
		}
		return
	default:
		r.log.Warn("unknown event type", "id", e.ResolutionID, "type", e.Type)
		return
	}

	_, err := r.repo.Update(r.ctx, e.ResolutionID, func(rec *data.Resolution) error {
		// The first terminal outcome wins; anything after it is stale.
		if rec.Status.Terminal() {
			return nil
		}
		if e.Type == fetch.EventStart && rec.Status != data.StatusQueued {
			return nil
		}
		rec.Status = status
		switch e.Type {
		case fetch.EventComplete:
			rec.LocalPath = e.Path
			rec.FromCache = e.FromCache
		case fetch.EventFailed:
			rec.Error = e.Error
		}
		return nil
	})
	if err != nil {
		r.log.Error("update", "id", e.ResolutionID, "status", status, "err", err)
		return
	}
	r.log.Info("reconciled event", "id", e.ResolutionID, "type", e.Type)
}
