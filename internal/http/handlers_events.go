package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roomfund/internal/storage"
)

// handleEvents streams the full collection named by ?kind= as server-sent
// events, one "snapshot" event per change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	account, err := accountFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind := storage.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = storage.KindExpenses
	}
	if !kind.Valid() {
		BadRequestError("Unknown record kind").Write(w)
		return
	}

	ctx := r.Context()
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.WarnContext(ctx, "Failed to clear write deadline", "error", err)
	}

	// Holds at most the latest snapshot; a slow client skips intermediate ones.
	latest := make(chan []storage.Document, 1)
	sub, err := s.household.Subscribe(ctx, account, kind, func(docs []storage.Document) {
		select {
		case <-latest:
		default:
		}
		latest <- docs
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer sub.Cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.WarnContext(ctx, "Event stream not flushable", "error", err)
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case docs := <-latest:
			payload, err := encodeSnapshot(kind, docs)
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to encode snapshot",
					"account", account, "kind", kind, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func encodeSnapshot(kind storage.Kind, docs []storage.Document) ([]byte, error) {
	records, err := snapshotRecords(kind, docs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotView{Kind: kind, Records: records})
}

func snapshotRecords(kind storage.Kind, docs []storage.Document) ([]any, error) {
	out := make([]any, 0, len(docs))
	switch kind {
	case storage.KindExpenses:
		expenses, err := storage.DecodeExpenses(docs)
		if err != nil {
			return nil, err
		}
		for _, e := range expenses {
			out = append(out, newExpenseView(e))
		}
	case storage.KindChores:
		chores, err := storage.DecodeChores(docs)
		if err != nil {
			return nil, err
		}
		for _, c := range chores {
			out = append(out, newChoreView(c))
		}
	case storage.KindRoommates:
		roommates, err := storage.DecodeRoommates(docs)
		if err != nil {
			return nil, err
		}
		for _, rm := range roommates {
			out = append(out, newRoommateView(rm))
		}
	case storage.KindBudget:
		for _, doc := range docs {
			b, err := storage.DecodeBudget(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, newBudgetView(&b))
		}
	}
	return out, nil
}
