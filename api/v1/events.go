package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"nhooyr.io/websocket"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/fetch"
)

// StreamEvents upgrades the connection and streams one resolution's events
// as JSON text messages until a terminal event is delivered or the client
// goes away. A resolution that is already terminal yields a single synthetic
// terminal event.
func (h *ResolutionHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.svc.Get(r.Context(), id); err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "unable to get resolution", http.StatusInternalServerError)
		return
	}

	events, cancel := h.broker.Subscribe(id)
	defer cancel()

	// Re-read after subscribing: a resolution that settled before the
	// subscription existed shows up in this fresh record, one that settles
	// later shows up on the channel. Either way the terminal event reaches
	// the client.
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		markErr(w, err)
		http.Error(w, "unable to get resolution", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		markErr(w, err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}()

	ctx := r.Context()

	if rec.Status.Terminal() {
		_ = writeEvent(ctx, conn, terminalEvent(rec))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, e); err != nil {
				return
			}
			if e.Type.Terminal() {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, e fetch.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// terminalEvent reconstructs the terminal event for an already settled
// resolution so late subscribers still get a closing message.
func terminalEvent(rec *data.Resolution) fetch.Event {
	e := fetch.Event{ResolutionID: rec.ID}
	switch rec.Status {
	case data.StatusComplete:
		e.Type = fetch.EventComplete
		e.Path = rec.LocalPath
		e.FromCache = rec.FromCache
	case data.StatusFailed:
		e.Type = fetch.EventFailed
		e.Error = rec.Error
	default:
		e.Type = fetch.EventCancelled
	}
	return e
}
