// Package api provides the HTTP adapter for twinpane's transfer engine.
// It exposes REST endpoints for scans, transfers and conflict detection,
// plus SSE event streaming for live progress.
package api

import "twinpane/pkg/engine"

// APIResponse wraps all API responses with a consistent structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError represents an API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StartScanRequest is the request body for starting a scan preview
type StartScanRequest struct {
	Sources            []string     `json:"sources"`
	Order              engine.Order `json:"order"`
	ProgressIntervalMs int          `json:"progressIntervalMs,omitempty"`
}

// StartTransferRequest is the request body for starting a transfer
type StartTransferRequest struct {
	Sources            []string              `json:"sources"`
	Destination        string                `json:"destination"`
	ConflictPolicy     engine.ConflictPolicy `json:"conflictPolicy,omitempty"`
	Move               bool                  `json:"move,omitempty"`
	ReusedScanID       string                `json:"reusedScanId,omitempty"`
	Order              engine.Order          `json:"order"`
	ProgressIntervalMs int                   `json:"progressIntervalMs,omitempty"`
}

// CancelTransferRequest is the request body for cancelling a transfer
type CancelTransferRequest struct {
	Rollback bool `json:"rollback"`
}

// ResolveConflictRequest delivers a conflict decision to a paused transfer
type ResolveConflictRequest struct {
	Decision engine.Decision `json:"decision"`
}

// DetectConflictsRequest is the request body for conflict detection
type DetectConflictsRequest struct {
	Destination string                `json:"destination"`
	Items       []engine.ConflictItem `json:"items"`
	MaxResults  int                   `json:"maxResults,omitempty"`
}

// OperationStartedResponse returns the id of a newly started operation
type OperationStartedResponse struct {
	ID string `json:"id"`
}

// OperationListResponse lists every registered operation
type OperationListResponse struct {
	Transfers []engine.TransferSnapshot `json:"transfers"`
}
