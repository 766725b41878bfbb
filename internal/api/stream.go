package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pyrelab/firespread/internal/httputil"
	"github.com/pyrelab/firespread/internal/sim"
)

// streamSimulation issues Server-Sent Events with one snapshot per event.
// The current snapshot is sent immediately; subsequent snapshots arrive as
// the stepping loop broadcasts them. The stream ends when the simulation
// reaches a terminal state or the client disconnects.
func (s *Server) streamSimulation(w http.ResponseWriter, r *http.Request, id string) {
	current, err := s.mgr.Snapshot(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming not supported")
		return
	}

	token, ch, err := s.mgr.Subscribe(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer s.mgr.Unsubscribe(id, token)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	if err := writeSnapshotEvent(w, current); err != nil {
		return
	}
	flusher.Flush()

	if current.Status.Terminal() {
		return
	}

	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				// Channel closed, the run is over. Broadcasts are
				// drop-on-full, so the terminal snapshot may never have
				// arrived; emit the final state before closing.
				if final, err := s.mgr.Snapshot(id); err == nil && final.Status.Terminal() {
					if writeSnapshotEvent(w, final) == nil {
						flusher.Flush()
					}
				}
				return
			}
			if err := writeSnapshotEvent(w, snapshot); err != nil {
				return
			}
			flusher.Flush()
			if snapshot.Status.Terminal() {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snapshot sim.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
