package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/core/service"
	"github.com/big14way/afri-asset/internal/events"
)

// streamHeartbeat is the interval of SSE keep-alive comments.
var streamHeartbeat = 15 * time.Second

// handleListEvents handles GET /v1/events.
//
// Query parameters: after (sequence cursor, default 0), limit.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	after, err := seqParam(query.Get("after"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit, err := intParam(query.Get("limit"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	evs, err := h.registry.ListEvents(r.Context(), after, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	next := after
	if n := len(evs); n > 0 {
		next = evs[n-1].Seq
	}
	h.writeJSON(w, r, http.StatusOK, ListEventsResponse{Items: evs, Next: next})
}

// handleStreamEvents handles GET /v1/events/stream as server-sent events.
//
// Query parameters: token_id and type narrow the stream. A cursor given as
// ?after= or a Last-Event-ID header first replays recorded events after it.
func (h *Handler) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		WriteError(w, r, domain.ErrServiceUnavailable.WithDetails("event stream disabled"))
		return
	}

	query := r.URL.Query()
	keep, err := streamFilter(query.Get("token_id"), query.Get("type"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	cursor := query.Get("after")
	if cursor == "" {
		cursor = r.Header.Get("Last-Event-ID")
	}
	after, err := seqParam(cursor)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	// Subscribe before reading history so nothing committed in between is lost.
	sub := h.events.Subscribe(events.WithBuffer(h.streamBuffer), events.WithFilter(keep))
	defer sub.Close()

	var backlog []domain.Event
	if cursor != "" {
		backlog, err = h.registry.ListEvents(r.Context(), after, service.MaxEventLimit)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not flushable", "error", err)
		return
	}

	// Replay page by page until a short page shows the log is caught up.
	last := after
	for len(backlog) > 0 {
		for _, ev := range backlog {
			if keep(ev) {
				if err := writeSSE(w, ev); err != nil {
					return
				}
			}
			last = ev.Seq
		}
		if err := rc.Flush(); err != nil {
			return
		}
		if len(backlog) < service.MaxEventLimit {
			break
		}
		backlog, err = h.registry.ListEvents(r.Context(), last, service.MaxEventLimit)
		if err != nil {
			h.logger.WarnContext(r.Context(), "event replay failed", "after", last, "error", err)
			return
		}
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if ev.Seq <= last {
				continue
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			last = ev.Seq
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// writeSSE writes one event frame.
func writeSSE(w http.ResponseWriter, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Type, data)
	return err
}

// streamFilter builds the subscription filter from the query.
func streamFilter(tokenID, eventType string) (func(domain.Event) bool, error) {
	var (
		id     domain.TokenID
		withID bool
	)
	if tokenID != "" {
		v, err := domain.ParseTokenID(tokenID)
		if err != nil {
			return nil, err
		}
		id, withID = v, true
	}
	if eventType != "" && !domain.EventType(eventType).Valid() {
		return nil, domain.ErrInvalidArgument.WithDetails("unknown event type " + strconv.Quote(eventType))
	}

	return func(ev domain.Event) bool {
		if eventType != "" && ev.Type != domain.EventType(eventType) {
			return false
		}
		if withID {
			evID, ok := ev.TokenID()
			if !ok || evID != id {
				return false
			}
		}
		return true
	}, nil
}

// seqParam parses an optional event sequence cursor.
func seqParam(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidArgument.WithDetails("invalid event cursor " + strconv.Quote(raw))
	}
	return v, nil
}
