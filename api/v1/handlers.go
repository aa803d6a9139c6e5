package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/fetch"
	"github.com/davekyte/docdock/internal/reqid"
	"github.com/davekyte/docdock/internal/service"
)

// ResolutionHandler serves the /v1 resolution endpoints.
type ResolutionHandler struct {
	l      *slog.Logger
	svc    service.Resolution
	broker *fetch.Broker
}

func NewResolutionHandler(l *slog.Logger, svc service.Resolution, broker *fetch.Broker) *ResolutionHandler {
	return &ResolutionHandler{l: l, svc: svc, broker: broker}
}

// addBody is the POST /v1/resolutions request payload.
type addBody struct {
	ConsumerID string                `json:"consumerId"`
	Source     data.SourceDescriptor `json:"source"`
}

type patchBody struct {
	DesiredStatus string `json:"desiredStatus"`
}

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

// context keys
type ctxKeyAdd struct{}
type ctxKeyPatch struct{}

func (h *ResolutionHandler) GetResolutions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		markErr(w, err)
		http.Error(w, "unable to list resolutions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := list.ToJSON(w); err != nil {
		markErr(w, err)
		http.Error(w, "unable to marshal json", http.StatusInternalServerError)
		return
	}
}

func (h *ResolutionHandler) GetResolution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "unable to get resolution", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = rec.ToJSON(w)
}

func (h *ResolutionHandler) AddResolution(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyAdd{})
	body, ok := v.(*addBody)
	if !ok {
		markErr(w, ErrResolutionCtx)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Add(r.Context(), body.ConsumerID, body.Source)
	if err != nil {
		markErr(w, err)
		switch {
		case errors.Is(err, data.ErrMissingSource), errors.Is(err, data.ErrMissingConsumer):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "unable to add resolution", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = rec.ToJSON(w)
}

func (h *ResolutionHandler) UpdateResolution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	v := r.Context().Value(ctxKeyPatch{})
	body, ok := v.(patchBody)
	if !ok {
		markErr(w, ErrPatchCtx)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if data.ResolutionStatus(body.DesiredStatus) != data.StatusCancelled {
		markErr(w, ErrCancelOnly)
		http.Error(w, ErrCancelOnly.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "unable to cancel resolution", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = rec.ToJSON(w)
}

func (h *ResolutionHandler) DropConsumer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.svc.DropConsumer(r.Context(), id); err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "unable to drop consumer", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Log is the request logging middleware.
func (h *ResolutionHandler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		timeElapsed := time.Since(startTime)

		attrs := []any{
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"remote", r.RemoteAddr,
			"dur_ms", timeElapsed.Milliseconds(),
			"bytes", rw.bytes,
		}
		if id, ok := reqid.From(r.Context()); ok {
			attrs = append(attrs, "req_id", id)
		}

		if rw.err != nil {
			h.l.Error(rw.err.Error(), attrs...)
			return
		}
		h.l.Info("", attrs...)
	})
}
