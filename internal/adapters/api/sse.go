package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleSSE streams operation events over Server-Sent Events.
// Clients connect to /api/events BEFORE issuing a start command so the
// first events of a fast operation are never lost; each event's kind is
// the SSE event type and the payload carries the operation id.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "sse_not_supported", "Streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sub := s.bus.Subscribe()
	defer sub.Close()
	client := s.clientGen.Next()
	s.log.Debug().Int64("client", client).Msg("SSE client connected")

	// Send initial connected event
	s.sendSSEEvent(w, "connected", map[string]interface{}{
		"message": "Connected to twinpane event stream",
		"client":  client,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.log.Debug().Int64("client", client).Int64("dropped", sub.Dropped()).Msg("SSE client disconnected")
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			s.sendSSEEvent(w, ev.Kind, ev)
			flusher.Flush()
		}
	}
}

// sendSSEEvent writes an SSE event to the response writer
func (s *Server) sendSSEEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("SSE marshal error")
		return
	}

	// SSE format: event: <type>\ndata: <json>\n\n
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
