package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"twinpane/pkg/fsys"
)

// ConflictPolicy is the rule applied when an item's destination name
// already exists.
type ConflictPolicy string

const (
	// PolicyStop pauses the whole transfer at the first conflict and
	// waits for an explicit per-item decision.
	PolicyStop ConflictPolicy = "stop"
	// PolicySkip leaves the existing destination entry untouched and
	// advances past the item without copying any bytes.
	PolicySkip ConflictPolicy = "skip"
	// PolicyOverwrite replaces the destination entry entirely.
	PolicyOverwrite ConflictPolicy = "overwrite"
)

// Phase is the transfer state machine:
// scanning -> copying -> complete | error | cancelled.
type Phase string

const (
	PhaseScanning  Phase = "scanning"
	PhaseCopying   Phase = "copying"
	PhaseComplete  Phase = "complete"
	PhaseError     Phase = "error"
	PhaseCancelled Phase = "cancelled"
)

// Decision resolves one conflict pause under PolicyStop.
type Decision string

const (
	DecisionOverwriteThis      Decision = "overwrite-this"
	DecisionSkipThis           Decision = "skip-this"
	DecisionOverwriteRemaining Decision = "overwrite-remaining"
	DecisionSkipRemaining      Decision = "skip-remaining"
	DecisionAbort              Decision = "abort"
)

const (
	// DefaultChunkSize is the copy chunk; cancellation is checked
	// between chunks so a large single file stays responsive.
	DefaultChunkSize = 1 << 20
	// DefaultDecisionTimeout bounds how long a stop-policy transfer
	// waits for a conflict decision before giving up.
	DefaultDecisionTimeout = 5 * time.Minute

	maxNameLength = 255
	maxPathLength = 1024
)

// TransferRequest describes one copy or move operation.
type TransferRequest struct {
	Sources          []string       `json:"sources"`
	Destination      string         `json:"destination"`
	Policy           ConflictPolicy `json:"conflictPolicy"`
	Move             bool           `json:"move"`
	ReusedScanID     string         `json:"reusedScanId,omitempty"`
	Order            Order          `json:"order"`
	ProgressInterval time.Duration  `json:"-"`
}

// TransferSnapshot is a read-only view of a transfer for status queries.
type TransferSnapshot struct {
	ID           string    `json:"id"`
	Phase        Phase     `json:"phase"`
	CurrentFile  string    `json:"currentFile"`
	FilesDone    uint64    `json:"filesDone"`
	FilesTotal   uint64    `json:"filesTotal"`
	BytesDone    uint64    `json:"bytesDone"`
	BytesTotal   uint64    `json:"bytesTotal"`
	ItemsSkipped uint64    `json:"itemsSkipped"`
	RolledBack   bool      `json:"rolledBack"`
	Error        *OpError  `json:"error,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
}

type transferOp struct {
	id        string
	req       TransferRequest
	cancel    context.CancelFunc
	decisions chan Decision

	mu           sync.Mutex
	policy       ConflictPolicy
	phase        Phase
	currentFile  string
	filesDone    uint64
	filesTotal   uint64
	bytesDone    uint64
	bytesTotal   uint64
	itemsSkipped uint64
	created      []string
	wantRollback bool
	rolledBack   bool
	awaiting     bool
	terminal     bool
	opErr        *OpError
	startedAt    time.Time
	lastEmit     time.Time
}

func (op *transferOp) snapshot() TransferSnapshot {
	op.mu.Lock()
	defer op.mu.Unlock()
	return TransferSnapshot{
		ID:           op.id,
		Phase:        op.phase,
		CurrentFile:  op.currentFile,
		FilesDone:    op.filesDone,
		FilesTotal:   op.filesTotal,
		BytesDone:    op.bytesDone,
		BytesTotal:   op.bytesTotal,
		ItemsSkipped: op.itemsSkipped,
		RolledBack:   op.rolledBack,
		Error:        op.opErr,
		StartedAt:    op.startedAt,
	}
}

// markSkipped advances filesDone for an item that was deliberately left
// uncopied and records it in the skip count. Skips add no bytes.
func (op *transferOp) markSkipped() {
	op.mu.Lock()
	op.filesDone++
	op.itemsSkipped++
	op.mu.Unlock()
}

// appendCreated records a successfully written destination path. This is
// the sole input to rollback and is appended synchronously after the write
// returns, before the next item starts.
func (op *transferOp) appendCreated(path string) {
	op.mu.Lock()
	op.created = append(op.created, path)
	op.mu.Unlock()
}

// Transfers is the registry of in-flight transfer operations. Each
// operation runs as an independent task owning its own state; snapshots
// handed out are copies.
type Transfers struct {
	mu  sync.Mutex
	ops map[string]*transferOp

	fs              fsys.FS
	scanner         *Scanner
	sink            EventSink
	log             zerolog.Logger
	chunkSize       int
	interval        time.Duration
	retention       time.Duration
	decisionTimeout time.Duration
}

// TransferOption configures a Transfers registry.
type TransferOption func(*Transfers)

// WithTransferLogger sets the logger.
func WithTransferLogger(log zerolog.Logger) TransferOption {
	return func(t *Transfers) { t.log = log }
}

// WithChunkSize sets the copy chunk size in bytes.
func WithChunkSize(n int) TransferOption {
	return func(t *Transfers) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

// WithRetention sets how long a terminal, unacknowledged operation stays
// queryable before its registry entry is freed.
func WithRetention(d time.Duration) TransferOption {
	return func(t *Transfers) { t.retention = d }
}

// WithDecisionTimeout sets the stop-policy conflict decision timeout.
func WithDecisionTimeout(d time.Duration) TransferOption {
	return func(t *Transfers) { t.decisionTimeout = d }
}

// WithProgressInterval sets the progress interval used when a transfer
// request does not carry one.
func WithProgressInterval(d time.Duration) TransferOption {
	return func(t *Transfers) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewTransfers creates a transfer registry.
func NewTransfers(fs fsys.FS, scanner *Scanner, sink EventSink, opts ...TransferOption) *Transfers {
	if sink == nil {
		sink = NopSink{}
	}
	t := &Transfers{
		ops:             make(map[string]*transferOp),
		fs:              fs,
		scanner:         scanner,
		sink:            sink,
		log:             zerolog.Nop(),
		chunkSize:       DefaultChunkSize,
		interval:        DefaultProgressInterval,
		retention:       DefaultRetention,
		decisionTimeout: DefaultDecisionTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start validates the request, registers the operation and runs it
// asynchronously. Validation failures are returned synchronously before
// anything is written; everything after that arrives via the event sink.
func (t *Transfers) Start(ctx context.Context, req TransferRequest) (string, error) {
	if req.Policy == "" {
		req.Policy = PolicyStop
	}
	if req.Order.Column == "" {
		req.Order = DefaultOrder()
	}
	if req.ProgressInterval <= 0 {
		req.ProgressInterval = t.interval
	}

	if err := t.validate(req); err != nil {
		return "", err
	}

	opCtx, cancel := context.WithCancel(ctx)
	op := &transferOp{
		id:        uuid.NewString(),
		req:       req,
		cancel:    cancel,
		decisions: make(chan Decision, 1),
		policy:    req.Policy,
		phase:     PhaseScanning,
		startedAt: time.Now(),
	}

	t.mu.Lock()
	t.ops[op.id] = op
	t.mu.Unlock()

	go t.run(opCtx, op)
	return op.id, nil
}

// validate enforces the pre-write rejections: sources must exist, the
// destination must be a directory, and the request must not copy a tree
// onto or into itself.
func (t *Transfers) validate(req TransferRequest) error {
	if len(req.Sources) == 0 {
		return &OpError{Code: CodeIO, Message: "no source paths"}
	}

	dest := filepath.Clean(req.Destination)
	info, err := t.fs.StatEntry(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return ioError(dest, err)
		}
		if os.IsPermission(err) {
			return permissionDenied(dest, err.Error())
		}
		return ioError(dest, err)
	}
	if !info.IsDirectory {
		return &OpError{Code: CodeIO, Path: dest, Message: "destination is not a directory"}
	}
	destCanon := canonical(dest)

	for _, src := range req.Sources {
		src = filepath.Clean(src)
		if !t.fs.PathExists(src) {
			return sourceNotFound(src)
		}
		if len(filepath.Base(src)) > maxNameLength || len(src) > maxPathLength {
			return &OpError{Code: CodeIO, Path: src, Message: "path too long"}
		}

		srcCanon := canonical(src)
		if srcCanon == destCanon || filepath.Dir(srcCanon) == destCanon {
			return sameLocation(src)
		}
		if strings.HasPrefix(destCanon+string(filepath.Separator), srcCanon+string(filepath.Separator)) {
			return destinationInsideSource()
		}
	}
	return nil
}

// canonical resolves symlinks when possible so the self-copy checks are
// not fooled by aliased paths.
func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

func (t *Transfers) run(ctx context.Context, op *transferOp) {
	manifest, err := t.acquireManifest(ctx, op)
	if err != nil {
		if AsOpError(err).Code == CodeCancelled {
			t.finishCancelled(op)
		} else {
			t.finishError(op, AsOpError(err))
		}
		return
	}

	op.mu.Lock()
	op.filesTotal = manifest.FilesTotal
	op.bytesTotal = manifest.BytesTotal
	op.itemsSkipped = manifest.ItemsSkipped
	op.phase = PhaseCopying
	op.mu.Unlock()
	t.emitProgress(op, true)

	// Pre-flight: refuse up front rather than fail on a mid-transfer
	// write. Free space is best-effort; an unqueryable volume does not
	// block the transfer.
	if free, ferr := t.fs.FreeSpace(op.req.Destination); ferr == nil && free < manifest.BytesTotal {
		t.finishError(op, insufficientSpace(manifest.BytesTotal, free))
		return
	}

	if op.req.Move && t.renameAll(op, manifest) {
		t.finishComplete(op)
		return
	}

	// For a move, only sources whose copy actually landed may be deleted
	// afterwards. Skipped items keep their source as the only copy.
	var copied map[string]bool
	if op.req.Move {
		copied = make(map[string]bool, len(manifest.Items))
	}

	for _, item := range manifest.Items {
		if ctx.Err() != nil {
			t.finishCancelled(op)
			return
		}

		op.mu.Lock()
		op.currentFile = item.RelPath
		op.mu.Unlock()

		written, err := t.processItem(ctx, op, item)
		if err != nil {
			if err.Code == CodeCancelled {
				t.finishCancelled(op)
			} else {
				t.finishError(op, err)
			}
			return
		}
		if copied != nil && written {
			copied[item.SourcePath] = true
		}
		t.emitProgress(op, false)
	}

	if ctx.Err() != nil {
		t.finishCancelled(op)
		return
	}

	if op.req.Move {
		t.removeSources(manifest, copied)
	}
	t.finishComplete(op)
}

// acquireManifest seeds the transfer from a completed scan preview when
// one was handed over, otherwise runs the transfer's own scanning phase.
func (t *Transfers) acquireManifest(ctx context.Context, op *transferOp) (*Manifest, error) {
	if op.req.ReusedScanID != "" {
		if m, ok := t.scanner.TakeManifest(op.req.ReusedScanID); ok {
			return m, nil
		}
		// Preview gone or never completed; rescan.
	}

	return t.scanner.Collect(ctx, op.req.Sources, op.req.Order, func(files, dirs, bytes, skipped uint64) {
		op.mu.Lock()
		op.filesTotal = files
		op.bytesTotal = bytes
		op.itemsSkipped = skipped
		op.mu.Unlock()
		t.emitProgress(op, false)
	})
}

// renameAll attempts the same-volume fast path for a move: every source
// root renamed directly under the destination. It succeeds only when no
// destination name exists and every rename works; any failure undoes the
// renames already made and falls back to copy-and-delete.
func (t *Transfers) renameAll(op *transferOp, manifest *Manifest) bool {
	roots := make([]Item, 0)
	for _, item := range manifest.Items {
		if item.RelPath == filepath.Base(item.SourcePath) {
			roots = append(roots, item)
		}
	}

	type renamed struct{ from, to string }
	done := make([]renamed, 0, len(roots))
	undo := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if err := os.Rename(done[i].to, done[i].from); err != nil {
				t.log.Warn().Str("path", done[i].to).Err(err).Msg("rename undo failed")
			}
		}
	}

	for _, root := range roots {
		destPath := root.DestPath(op.req.Destination)
		if t.fs.PathExists(destPath) {
			undo()
			return false
		}
		if err := os.Rename(root.SourcePath, destPath); err != nil {
			undo()
			return false
		}
		done = append(done, renamed{from: root.SourcePath, to: destPath})
		op.appendCreated(destPath)
	}

	op.mu.Lock()
	op.filesDone = op.filesTotal
	op.bytesDone = op.bytesTotal
	op.mu.Unlock()
	return true
}

// processItem writes one manifest entry to the destination. A nil error
// means the item was handled; written reports whether the destination
// actually received it, which is false for every flavor of skip. A
// non-nil error aborts the whole transfer.
func (t *Transfers) processItem(ctx context.Context, op *transferOp, item Item) (written bool, opErr *OpError) {
	destPath := item.DestPath(op.req.Destination)

	if item.IsDirectory {
		err := t.processDir(op, destPath)
		return err == nil, err
	}

	// Existence is re-checked here, not trusted from any earlier
	// conflict detection: the gap between check and write is real.
	exists := t.fs.PathExists(destPath)
	if exists {
		action, err := t.resolveConflict(ctx, op, item, destPath)
		if err != nil {
			return false, err
		}
		if action == DecisionSkipThis {
			op.markSkipped()
			return false, nil
		}
		if same, serr := sameEntry(item.SourcePath, destPath); serr == nil && same {
			return false, sameLocation(item.SourcePath)
		}
	}

	if item.IsSymlink {
		return t.processSymlink(op, item, destPath, exists)
	}
	return t.processFile(ctx, op, item, destPath, exists)
}

func (t *Transfers) processDir(op *transferOp, destPath string) *OpError {
	if t.fs.PathExists(destPath) {
		if info, err := t.fs.StatEntry(destPath); err == nil && info.IsDirectory {
			// Merge into the existing directory; nothing created.
			return nil
		}
		return &OpError{Code: CodeIO, Path: destPath, Message: "destination entry is not a directory"}
	}
	if err := os.Mkdir(destPath, 0755); err != nil {
		if os.IsPermission(err) {
			return permissionDenied(destPath, err.Error())
		}
		return ioError(destPath, err)
	}
	op.appendCreated(destPath)
	return nil
}

func (t *Transfers) processSymlink(op *transferOp, item Item, destPath string, exists bool) (bool, *OpError) {
	target, err := os.Readlink(item.SourcePath)
	if err != nil {
		t.log.Warn().Str("path", item.SourcePath).Err(err).Msg("unreadable symlink skipped")
		op.markSkipped()
		return false, nil
	}
	if exists {
		if err := os.Remove(destPath); err != nil {
			return false, ioError(destPath, err)
		}
	}
	if err := os.Symlink(target, destPath); err != nil {
		if os.IsPermission(err) {
			return false, permissionDenied(destPath, err.Error())
		}
		return false, ioError(destPath, err)
	}
	op.appendCreated(destPath)
	op.mu.Lock()
	op.filesDone++
	op.bytesDone += item.Size
	op.mu.Unlock()
	return true, nil
}

func (t *Transfers) processFile(ctx context.Context, op *transferOp, item Item, destPath string, exists bool) (bool, *OpError) {
	var err *OpError
	if exists {
		err = t.overwriteFile(ctx, item.SourcePath, destPath)
	} else {
		err = t.copyFile(ctx, item.SourcePath, destPath)
	}

	if err != nil {
		if err.Code == CodePermissionDenied && err.Path == item.SourcePath {
			// Unreadable source entry: skip and keep going.
			t.log.Warn().Str("path", item.SourcePath).Msg("permission denied, file skipped")
			op.markSkipped()
			return false, nil
		}
		return false, err
	}

	op.appendCreated(destPath)
	op.mu.Lock()
	op.filesDone++
	op.bytesDone += item.Size
	op.mu.Unlock()
	return true, nil
}

// resolveConflict maps an existing destination entry to an action under
// the operation's current policy. Under PolicyStop the transfer pauses
// here until the caller decides; a remaining-scope decision rewrites the
// policy for every later item.
func (t *Transfers) resolveConflict(ctx context.Context, op *transferOp, item Item, destPath string) (Decision, *OpError) {
	op.mu.Lock()
	policy := op.policy
	op.mu.Unlock()

	switch policy {
	case PolicySkip:
		return DecisionSkipThis, nil
	case PolicyOverwrite:
		return DecisionOverwriteThis, nil
	}

	rec := ConflictRecord{
		Name:             filepath.Base(item.SourcePath),
		SourceSize:       item.Size,
		SourceModifiedAt: item.ModifiedAt,
	}
	if info, err := t.fs.StatEntry(destPath); err == nil {
		rec.ExistingSize = info.Size
		rec.ExistingModifiedAt = info.ModifiedAt
	}

	op.mu.Lock()
	op.awaiting = true
	op.mu.Unlock()
	t.sink.Emit(EventTransferConflict, op.id, TransferConflict{
		ID:       op.id,
		Conflict: rec,
		Error:    destinationExists(destPath),
	})

	defer func() {
		op.mu.Lock()
		op.awaiting = false
		op.mu.Unlock()
	}()

	select {
	case d := <-op.decisions:
		switch d {
		case DecisionOverwriteThis:
			return DecisionOverwriteThis, nil
		case DecisionSkipThis:
			return DecisionSkipThis, nil
		case DecisionOverwriteRemaining:
			op.mu.Lock()
			op.policy = PolicyOverwrite
			op.mu.Unlock()
			return DecisionOverwriteThis, nil
		case DecisionSkipRemaining:
			op.mu.Lock()
			op.policy = PolicySkip
			op.mu.Unlock()
			return DecisionSkipThis, nil
		case DecisionAbort:
			return "", cancelled("aborted on conflict")
		}
		return "", &OpError{Code: CodeIO, Message: "unknown conflict decision"}
	case <-ctx.Done():
		return "", cancelled("transfer cancelled")
	case <-time.After(t.decisionTimeout):
		return "", cancelled("no conflict decision received")
	}
}

// sameEntry reports whether two paths refer to the same file.
func sameEntry(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ia, ib), nil
}

// removeSources deletes moved sources after a fully successful move,
// children before parents. A file or symlink is removed only if its copy
// landed at the destination; a skipped item's source is its only copy and
// must survive. Directory removals stay best-effort: one holding a kept
// child is simply left in place. Failures are never fatal.
func (t *Transfers) removeSources(manifest *Manifest, copied map[string]bool) {
	for i := len(manifest.Items) - 1; i >= 0; i-- {
		item := manifest.Items[i]
		if !item.IsDirectory && !copied[item.SourcePath] {
			t.log.Debug().Str("path", item.SourcePath).Msg("skipped source kept")
			continue
		}
		if err := os.Remove(item.SourcePath); err != nil {
			if item.IsDirectory {
				t.log.Debug().Str("path", item.SourcePath).Err(err).Msg("source directory kept")
			} else {
				t.log.Warn().Str("path", item.SourcePath).Err(err).Msg("source removal failed")
			}
		}
	}
}

// Cancel requests cooperative cancellation. It returns once the request
// is recorded; the terminal event signals the operation has fully ended.
func (t *Transfers) Cancel(id string, rollback bool) error {
	op, ok := t.lookup(id)
	if !ok {
		return &OpError{Code: CodeIO, Message: "transfer not found: " + id}
	}
	op.mu.Lock()
	if op.terminal {
		op.mu.Unlock()
		return &OpError{Code: CodeIO, Message: "transfer already finished: " + id}
	}
	op.wantRollback = rollback
	op.mu.Unlock()
	op.cancel()
	return nil
}

// Resolve delivers a conflict decision to a transfer paused under
// PolicyStop.
func (t *Transfers) Resolve(id string, d Decision) error {
	op, ok := t.lookup(id)
	if !ok {
		return &OpError{Code: CodeIO, Message: "transfer not found: " + id}
	}
	op.mu.Lock()
	awaiting := op.awaiting
	op.mu.Unlock()
	if !awaiting {
		return &OpError{Code: CodeIO, Message: "transfer is not waiting on a conflict: " + id}
	}
	select {
	case op.decisions <- d:
		return nil
	default:
		return &OpError{Code: CodeIO, Message: "decision already pending: " + id}
	}
}

// Ack acknowledges a terminal event and frees the registry entry. Entries
// not acknowledged are reclaimed after the retention window.
func (t *Transfers) Ack(id string) error {
	op, ok := t.lookup(id)
	if !ok {
		return &OpError{Code: CodeIO, Message: "transfer not found: " + id}
	}
	op.mu.Lock()
	terminal := op.terminal
	op.mu.Unlock()
	if !terminal {
		return &OpError{Code: CodeIO, Message: "transfer still running: " + id}
	}
	t.mu.Lock()
	delete(t.ops, id)
	t.mu.Unlock()
	return nil
}

// Status returns a snapshot of one transfer.
func (t *Transfers) Status(id string) (TransferSnapshot, bool) {
	op, ok := t.lookup(id)
	if !ok {
		return TransferSnapshot{}, false
	}
	return op.snapshot(), true
}

// List returns snapshots of every registered transfer, newest first.
func (t *Transfers) List() []TransferSnapshot {
	t.mu.Lock()
	ops := make([]*transferOp, 0, len(t.ops))
	for _, op := range t.ops {
		ops = append(ops, op)
	}
	t.mu.Unlock()

	list := make([]TransferSnapshot, 0, len(ops))
	for _, op := range ops {
		list = append(list, op.snapshot())
	}
	for i := 0; i < len(list)-1; i++ {
		for j := i + 1; j < len(list); j++ {
			if list[j].StartedAt.After(list[i].StartedAt) {
				list[i], list[j] = list[j], list[i]
			}
		}
	}
	return list
}

func (t *Transfers) lookup(id string) (*transferOp, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	return op, ok
}

// emitProgress publishes a progress snapshot, rate-limited to the
// operation's interval unless forced.
func (t *Transfers) emitProgress(op *transferOp, force bool) {
	op.mu.Lock()
	now := time.Now()
	if !force && now.Sub(op.lastEmit) < op.req.ProgressInterval {
		op.mu.Unlock()
		return
	}
	op.lastEmit = now
	ev := TransferProgress{
		ID:           op.id,
		Phase:        op.phase,
		CurrentFile:  op.currentFile,
		FilesDone:    op.filesDone,
		FilesTotal:   op.filesTotal,
		BytesDone:    op.bytesDone,
		BytesTotal:   op.bytesTotal,
		ItemsSkipped: op.itemsSkipped,
	}
	op.mu.Unlock()

	t.sink.Emit(EventTransferProgress, op.id, ev)
}

// finish marks the operation terminal exactly once and schedules the
// registry entry for reclamation if never acknowledged.
func (t *Transfers) finish(op *transferOp, phase Phase) bool {
	op.mu.Lock()
	if op.terminal {
		op.mu.Unlock()
		return false
	}
	op.terminal = true
	op.phase = phase
	op.mu.Unlock()

	time.AfterFunc(t.retention, func() {
		t.mu.Lock()
		delete(t.ops, op.id)
		t.mu.Unlock()
	})
	return true
}

func (t *Transfers) finishComplete(op *transferOp) {
	if !t.finish(op, PhaseComplete) {
		return
	}
	op.mu.Lock()
	files, bytes, skipped := op.filesDone, op.bytesDone, op.itemsSkipped
	op.mu.Unlock()
	t.sink.Emit(EventTransferComplete, op.id, TransferComplete{
		ID:             op.id,
		FilesProcessed: files,
		BytesProcessed: bytes,
		ItemsSkipped:   skipped,
	})

	// Best-effort durability: flush the destination directory metadata so
	// the new entries survive a crash right after completion.
	go t.syncDestination(op.req.Destination)
}

func (t *Transfers) syncDestination(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		t.log.Debug().Err(err).Str("dir", dir).Msg("destination sync skipped")
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		t.log.Debug().Err(err).Str("dir", dir).Msg("destination sync failed")
	}
}

func (t *Transfers) finishError(op *transferOp, opErr *OpError) {
	if !t.finish(op, PhaseError) {
		return
	}
	op.mu.Lock()
	op.opErr = opErr
	op.mu.Unlock()
	t.log.Error().Str("transfer", op.id).Err(opErr).Msg("transfer failed")
	t.sink.Emit(EventTransferError, op.id, TransferError{ID: op.id, Error: opErr})
}

func (t *Transfers) finishCancelled(op *transferOp) {
	op.mu.Lock()
	rollback := op.wantRollback
	op.mu.Unlock()

	if rollback {
		t.runRollback(op)
	}
	if !t.finish(op, PhaseCancelled) {
		return
	}

	op.mu.Lock()
	op.rolledBack = rollback
	files, skipped := op.filesDone, op.itemsSkipped
	op.mu.Unlock()
	t.sink.Emit(EventTransferCancelled, op.id, TransferCancelled{
		ID:             op.id,
		FilesProcessed: files,
		ItemsSkipped:   skipped,
		RolledBack:     rollback,
	})
}
