package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"twinpane/pkg/engine"
)

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "twinpane-api",
	})
}

// handleStartScan starts a scan preview and returns its id.
// Clients must already be subscribed to /api/events: a fast scan can
// complete before this response arrives.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is allowed")
		return
	}

	var req StartScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(req.Sources) == 0 {
		s.writeError(w, http.StatusBadRequest, "invalid_body", "sources is required")
		return
	}

	// Operations outlive the request; they are cancelled via their own
	// cancel endpoints, not by the client hanging up.
	interval := time.Duration(req.ProgressIntervalMs) * time.Millisecond
	id := s.scanner.Start(context.Background(), req.Sources, req.Order, interval)
	s.writeJSON(w, http.StatusAccepted, OperationStartedResponse{ID: id})
}

// handleScan handles GET /api/scan/{id} and POST /api/scan/{id}/cancel
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	id, action := splitOperationPath(r.URL.Path, "/api/scan/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_path", "Scan ID required")
		return
	}

	switch {
	case r.Method == http.MethodGet && action == "":
		snap, ok := s.scanner.Status(id)
		if !ok {
			s.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("scan not found: %s", id))
			return
		}
		s.writeJSON(w, http.StatusOK, snap)

	case r.Method == http.MethodPost && action == "cancel":
		if err := s.scanner.Cancel(id); err != nil {
			s.writeOpError(w, http.StatusNotFound, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Scan %s cancellation requested", id),
		})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET /api/scan/{id} or POST /api/scan/{id}/cancel")
	}
}

// handleStartTransfer starts a transfer and returns its id. Validation
// failures (missing source, self-copy, bad destination) are rejected here
// synchronously; everything later arrives as events.
func (s *Server) handleStartTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is allowed")
		return
	}

	var req StartTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	id, err := s.transfers.Start(context.Background(), engine.TransferRequest{
		Sources:          req.Sources,
		Destination:      req.Destination,
		Policy:           req.ConflictPolicy,
		Move:             req.Move,
		ReusedScanID:     req.ReusedScanID,
		Order:            req.Order,
		ProgressInterval: time.Duration(req.ProgressIntervalMs) * time.Millisecond,
	})
	if err != nil {
		s.writeOpError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, OperationStartedResponse{ID: id})
}

// handleTransfer handles GET /api/transfer/{id} and the POST actions
// cancel, resolve and ack.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	id, action := splitOperationPath(r.URL.Path, "/api/transfer/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_path", "Transfer ID required")
		return
	}

	if r.Method == http.MethodGet && action == "" {
		snap, ok := s.transfers.Status(id)
		if !ok {
			s.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("transfer not found: %s", id))
			return
		}
		s.writeJSON(w, http.StatusOK, snap)
		return
	}

	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET or POST is allowed")
		return
	}

	switch action {
	case "cancel":
		var req CancelTransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// Empty body means cancel without rollback
			req = CancelTransferRequest{}
		}
		if err := s.transfers.Cancel(id, req.Rollback); err != nil {
			s.writeOpError(w, http.StatusNotFound, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Transfer %s cancellation requested", id),
		})

	case "resolve":
		var req ResolveConflictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		if err := s.transfers.Resolve(id, req.Decision); err != nil {
			s.writeOpError(w, http.StatusConflict, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Decision %s applied", req.Decision),
		})

	case "ack":
		if err := s.transfers.Ack(id); err != nil {
			s.writeOpError(w, http.StatusConflict, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Transfer %s acknowledged", id),
		})

	default:
		s.writeError(w, http.StatusNotFound, "invalid_path", "Unknown transfer action")
	}
}

// handleDetectConflicts runs read-only conflict detection. Results can go
// stale before a transfer starts; the transfer re-checks at write time.
func (s *Server) handleDetectConflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is allowed")
		return
	}

	var req DetectConflictsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Destination == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_body", "destination is required")
		return
	}

	maxResults := req.MaxResults
	if maxResults <= 0 || maxResults > s.maxConflicts {
		maxResults = s.maxConflicts
	}

	conflicts := s.detector.Detect(req.Destination, req.Items, maxResults)
	s.writeJSON(w, http.StatusOK, conflicts)
}

// handleOperations lists every registered transfer, newest first
func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, OperationListResponse{
		Transfers: s.transfers.List(),
	})
}

// handleOperation handles GET /api/operations/{id}, resolving the id
// against transfers first and scan previews second.
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is allowed")
		return
	}

	id, action := splitOperationPath(r.URL.Path, "/api/operations/")
	if id == "" || action != "" {
		s.writeError(w, http.StatusBadRequest, "invalid_path", "Operation ID required")
		return
	}

	if snap, ok := s.transfers.Status(id); ok {
		s.writeJSON(w, http.StatusOK, snap)
		return
	}
	if snap, ok := s.scanner.Status(id); ok {
		s.writeJSON(w, http.StatusOK, snap)
		return
	}
	s.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("operation not found: %s", id))
}

// splitOperationPath extracts "{id}" and an optional trailing action from
// a path like prefix + "{id}/action".
func splitOperationPath(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 {
		return "", ""
	}
	id = parts[0]
	if len(parts) > 1 {
		action = strings.Trim(parts[1], "/")
	}
	return id, action
}
