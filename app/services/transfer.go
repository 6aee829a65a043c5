package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"twinpane/internal/core"
	"twinpane/pkg/engine"
)

// WailsEmitter forwards bus events to the frontend as Wails runtime
// events. The event kind is the runtime event name; the frontend filters
// by operation id, adopting the first event's id when the start call's
// response has not arrived yet.
type WailsEmitter struct {
	ctx context.Context
}

// NewWailsEmitter creates an emitter bound to the Wails context.
func NewWailsEmitter(ctx context.Context) *WailsEmitter {
	return &WailsEmitter{ctx: ctx}
}

// EmitEvent implements core.EventEmitter.
func (e *WailsEmitter) EmitEvent(ev core.Event) {
	runtime.EventsEmit(e.ctx, ev.Kind, ev)
}

// TransferService exposes the scan, conflict and transfer operations to
// the frontend. Start methods return an operation id immediately; all
// progress and results arrive as runtime events.
type TransferService struct {
	log       zerolog.Logger
	scanner   *engine.Scanner
	transfers *engine.Transfers
	detector  *engine.Detector
}

// NewTransferService creates the bound transfer service.
func NewTransferService(log zerolog.Logger, scanner *engine.Scanner, transfers *engine.Transfers, detector *engine.Detector) *TransferService {
	return &TransferService{
		log:       log,
		scanner:   scanner,
		transfers: transfers,
		detector:  detector,
	}
}

// StartScan begins a scan preview of the given sources.
func (s *TransferService) StartScan(sources []string, order engine.Order, progressIntervalMs int) string {
	interval := time.Duration(progressIntervalMs) * time.Millisecond
	id := s.scanner.Start(context.Background(), sources, order, interval)
	s.log.Debug().Str("scan", id).Strs("sources", sources).Msg("scan started")
	return id
}

// CancelScan cancels a running scan preview.
func (s *TransferService) CancelScan(id string) error {
	return s.scanner.Cancel(id)
}

// ScanStatus returns the current snapshot of a scan preview.
func (s *TransferService) ScanStatus(id string) (engine.ScanSnapshot, bool) {
	return s.scanner.Status(id)
}

// StartTransfer begins a copy or move operation. Validation failures
// (missing source, self-copy, bad destination) are returned here; the
// operation's outcome arrives as a terminal event.
func (s *TransferService) StartTransfer(req engine.TransferRequest) (string, error) {
	id, err := s.transfers.Start(context.Background(), req)
	if err != nil {
		s.log.Warn().Err(err).Msg("transfer rejected")
		return "", err
	}
	s.log.Debug().Str("transfer", id).Str("dest", req.Destination).Bool("move", req.Move).Msg("transfer started")
	return id, nil
}

// CancelTransfer requests cooperative cancellation, optionally rolling
// back every destination path the transfer created.
func (s *TransferService) CancelTransfer(id string, rollback bool) error {
	return s.transfers.Cancel(id, rollback)
}

// ResolveConflict delivers a decision to a transfer paused on a conflict.
func (s *TransferService) ResolveConflict(id string, decision engine.Decision) error {
	return s.transfers.Resolve(id, decision)
}

// AckTransfer acknowledges a terminal event and frees the operation.
func (s *TransferService) AckTransfer(id string) error {
	return s.transfers.Ack(id)
}

// TransferStatus returns the current snapshot of a transfer.
func (s *TransferService) TransferStatus(id string) (engine.TransferSnapshot, bool) {
	return s.transfers.Status(id)
}

// ListTransfers returns every registered transfer, newest first.
func (s *TransferService) ListTransfers() []engine.TransferSnapshot {
	return s.transfers.List()
}

// DetectConflicts reports which items would overwrite existing entries
// directly under the destination.
func (s *TransferService) DetectConflicts(destination string, items []engine.ConflictItem, maxResults int) []engine.ConflictRecord {
	return s.detector.Detect(destination, items, maxResults)
}
