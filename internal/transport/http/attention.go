package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
)

type AttentionReader interface {
	Snapshot(ctx context.Context, ac auth.Context) (app.AttentionSnapshot, error)
}

type AttentionWatcher interface {
	AttentionReader
	Subscribe(hostID string) (<-chan int, func())
}

// HandleAttention serves GET /hosts/me/attention.
func HandleAttention(svc AttentionReader, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		snap, err := svc.Snapshot(r.Context(), auth.FromContext(r.Context()))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAttentionResponse(snap))
	}
}

// attentionHeartbeat keeps idle streams open through proxies.
const attentionHeartbeat = 25 * time.Second

// HandleAttentionStream serves GET /hosts/me/attention/stream as
// server-sent events: one snapshot event, then a count event per change.
func HandleAttentionStream(svc AttentionWatcher, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		ac := auth.FromContext(r.Context())
		if err := ac.Require(); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeDomainError(w, logger, fmt.Errorf("attention stream: response writer cannot flush"))
			return
		}

		// Subscribe before the snapshot so no change falls between them.
		updates, stop := svc.Subscribe(ac.UserID)
		defer stop()

		snap, err := svc.Snapshot(r.Context(), ac)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if err := writeEvent(w, "snapshot", toAttentionResponse(snap)); err != nil {
			return
		}
		flusher.Flush()

		heartbeat := time.NewTicker(attentionHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			case count, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, "count", countEvent{Count: count}); err != nil {
					if logger != nil {
						logger.Printf("WARN: attention stream write failed host_id=%s: %v", ac.UserID, err)
					}
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}

type countEvent struct {
	Count int `json:"count"`
}

type attentionResponse struct {
	Count      int                 `json:"count"`
	BookingIDs []string            `json:"bookingIds"`
	Streams    map[string][]string `json:"streams"`
}

func toAttentionResponse(snap app.AttentionSnapshot) attentionResponse {
	ids := snap.BookingIDs
	if ids == nil {
		ids = []string{}
	}
	streams := make(map[string][]string, len(snap.Streams))
	for id, tags := range snap.Streams {
		names := make([]string, 0, len(tags))
		for _, tag := range tags {
			names = append(names, string(tag))
		}
		streams[id] = names
	}
	return attentionResponse{Count: snap.Count, BookingIDs: ids, Streams: streams}
}
