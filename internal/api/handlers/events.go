package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"route-planner-service/internal/api/dto"
	"route-planner-service/internal/services"
)

const defaultHeartbeat = 15 * time.Second

// Events handles GET /plans/{id}/events as a server-sent event stream.
// The stream ends after the run completes or fails, or when the client leaves.
func (h *PlanHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	id := r.PathValue("id")
	ch, cancel, err := h.Manager.Events(id)
	if err != nil {
		writeServiceError(w, r, "plan events", err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				log.Printf("plan events write failed: session_id=%s err=%v", id, err)
				return
			}
			flusher.Flush()
			if ev.Kind == services.EventComplete || ev.Kind == services.EventError {
				return
			}

		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev services.Event) error {
	payload := dto.EventResponse{
		State:         string(ev.State),
		NothingToPlan: ev.NothingToPlan,
		Reason:        ev.Reason,
	}
	switch ev.Kind {
	case services.EventProgress:
		payload.Progress = &dto.ProgressResponse{Current: ev.Current, Total: ev.Total}
	case services.EventComplete:
		payload.Itinerary = itineraryResponse(ev.Itinerary)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, b)
	return err
}
