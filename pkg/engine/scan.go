package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"twinpane/pkg/fsys"
)

// Status is the lifecycle state of a scan preview.
type Status string

const (
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

const (
	// DefaultProgressInterval bounds how often progress events are emitted.
	DefaultProgressInterval = 100 * time.Millisecond
	// DefaultRetention is how long a finished operation stays queryable
	// when nobody consumes or acknowledges it.
	DefaultRetention = 60 * time.Second
)

// ScanSnapshot is a read-only view of a scan preview for status queries.
type ScanSnapshot struct {
	ID           string    `json:"id"`
	Status       Status    `json:"status"`
	FilesFound   uint64    `json:"filesFound"`
	DirsFound    uint64    `json:"dirsFound"`
	BytesFound   uint64    `json:"bytesFound"`
	ItemsSkipped uint64    `json:"itemsSkipped"`
	StartedAt    time.Time `json:"startedAt"`
}

type scanState struct {
	id        string
	cancel    context.CancelFunc
	status    Status
	files     uint64
	dirs      uint64
	bytes     uint64
	skipped   uint64
	manifest  *Manifest
	startedAt time.Time
}

// Scanner runs scan previews: it walks source trees, tallies counts and
// bytes, and produces the ordered manifest a transfer consumes. Each scan
// is an independent task owning its preview exclusively until terminal.
type Scanner struct {
	mu    sync.Mutex
	scans map[string]*scanState

	fs        fsys.FS
	sink      EventSink
	log       zerolog.Logger
	interval  time.Duration
	retention time.Duration
	ignore    []string
}

// ScanOption configures a Scanner.
type ScanOption func(*Scanner)

// WithScanLogger sets the logger.
func WithScanLogger(log zerolog.Logger) ScanOption {
	return func(s *Scanner) { s.log = log }
}

// WithIgnoreGlobs sets doublestar patterns matched against each entry's
// slash-separated relative path; matching entries are excluded entirely.
func WithIgnoreGlobs(globs []string) ScanOption {
	return func(s *Scanner) { s.ignore = globs }
}

// WithScanRetention sets how long an unconsumed finished preview is kept.
func WithScanRetention(d time.Duration) ScanOption {
	return func(s *Scanner) { s.retention = d }
}

// WithScanInterval sets the progress interval used when a scan request
// does not carry one.
func WithScanInterval(d time.Duration) ScanOption {
	return func(s *Scanner) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewScanner creates a Scanner.
func NewScanner(fs fsys.FS, sink EventSink, opts ...ScanOption) *Scanner {
	if sink == nil {
		sink = NopSink{}
	}
	s := &Scanner{
		scans:     make(map[string]*scanState),
		fs:        fs,
		sink:      sink,
		log:       zerolog.Nop(),
		interval:  DefaultProgressInterval,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins scanning sources asynchronously and returns the preview id.
// Progress arrives on the event sink at most once per interval; exactly one
// terminal event follows regardless of how many progress events preceded it.
func (s *Scanner) Start(ctx context.Context, sources []string, order Order, interval time.Duration) string {
	if interval <= 0 {
		interval = s.interval
	}

	id := uuid.NewString()
	scanCtx, cancel := context.WithCancel(ctx)

	st := &scanState{
		id:        id,
		cancel:    cancel,
		status:    StatusRunning,
		startedAt: time.Now(),
	}
	s.mu.Lock()
	s.scans[id] = st
	s.mu.Unlock()

	go s.run(scanCtx, st, sources, order, interval)
	return id
}

func (s *Scanner) run(ctx context.Context, st *scanState, sources []string, order Order, interval time.Duration) {
	var lastEmit time.Time

	manifest, err := s.Collect(ctx, sources, order, func(files, dirs, bytes, skipped uint64) {
		s.mu.Lock()
		st.files, st.dirs, st.bytes, st.skipped = files, dirs, bytes, skipped
		s.mu.Unlock()

		now := time.Now()
		if now.Sub(lastEmit) < interval {
			return
		}
		lastEmit = now
		s.sink.Emit(EventScanProgress, st.id, ScanProgress{
			ID:           st.id,
			FilesFound:   files,
			DirsFound:    dirs,
			BytesFound:   bytes,
			ItemsSkipped: skipped,
		})
	})

	s.mu.Lock()
	switch {
	case err != nil && AsOpError(err).Code == CodeCancelled:
		st.status = StatusCancelled
	case err != nil:
		st.status = StatusError
	default:
		st.status = StatusComplete
		st.manifest = manifest
		st.files = manifest.FilesTotal
		st.dirs = manifest.DirsTotal
		st.bytes = manifest.BytesTotal
		st.skipped = manifest.ItemsSkipped
	}
	status := st.status
	s.mu.Unlock()

	switch status {
	case StatusCancelled:
		s.sink.Emit(EventScanCancelled, st.id, ScanCancelled{ID: st.id})
		s.remove(st.id)
	case StatusError:
		s.log.Warn().Str("scan", st.id).Err(err).Msg("scan failed")
		s.sink.Emit(EventScanError, st.id, ScanError{ID: st.id, Message: AsOpError(err).Error()})
		s.remove(st.id)
	default:
		s.sink.Emit(EventScanComplete, st.id, ScanComplete{
			ID:           st.id,
			FilesTotal:   manifest.FilesTotal,
			DirsTotal:    manifest.DirsTotal,
			BytesTotal:   manifest.BytesTotal,
			ItemsSkipped: manifest.ItemsSkipped,
		})
		// Reclaim the preview if no transfer ever consumes it.
		time.AfterFunc(s.retention, func() { s.remove(st.id) })
	}
}

func (s *Scanner) remove(id string) {
	s.mu.Lock()
	delete(s.scans, id)
	s.mu.Unlock()
}

// Cancel requests cancellation of a running scan. It returns as soon as the
// request is recorded; the terminal event signals the scan has ended.
func (s *Scanner) Cancel(id string) error {
	s.mu.Lock()
	st, ok := s.scans[id]
	s.mu.Unlock()
	if !ok {
		return &OpError{Code: CodeIO, Message: "scan not found: " + id}
	}
	st.cancel()
	return nil
}

// Status returns a snapshot of a scan preview.
func (s *Scanner) Status(id string) (ScanSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.scans[id]
	if !ok {
		return ScanSnapshot{}, false
	}
	return ScanSnapshot{
		ID:           st.id,
		Status:       st.status,
		FilesFound:   st.files,
		DirsFound:    st.dirs,
		BytesFound:   st.bytes,
		ItemsSkipped: st.skipped,
		StartedAt:    st.startedAt,
	}, true
}

// TakeManifest hands a completed preview's manifest to a transfer and
// destroys the preview. A manifest can be consumed exactly once.
func (s *Scanner) TakeManifest(id string) (*Manifest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.scans[id]
	if !ok || st.status != StatusComplete || st.manifest == nil {
		return nil, false
	}
	m := st.manifest
	delete(s.scans, id)
	return m, true
}

// Collect walks sources synchronously and builds the ordered manifest.
// onProgress, if non-nil, is invoked with the running tallies after every
// counted entry. Transfers without a reusable preview call this directly
// for their scanning phase.
func (s *Scanner) Collect(ctx context.Context, sources []string, order Order, onProgress func(files, dirs, bytes, skipped uint64)) (*Manifest, error) {
	w := &walker{
		fs:         s.fs,
		log:        s.log,
		ignore:     s.ignore,
		onProgress: onProgress,
	}

	roots := make([]Item, 0, len(sources))
	for _, src := range sources {
		src = filepath.Clean(src)
		info, err := s.fs.StatEntry(src)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, sourceNotFound(src)
			}
			return nil, ioError(src, err)
		}
		roots = append(roots, Item{
			SourcePath:  src,
			RelPath:     filepath.Base(src),
			Size:        info.Size,
			ModifiedAt:  info.ModifiedAt,
			IsDirectory: info.IsDirectory,
			IsSymlink:   info.IsSymlink,
		})
	}
	sortItems(roots, order)

	m := &Manifest{}
	for _, root := range roots {
		if err := w.walk(ctx, root, order, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// walker accumulates one scan's traversal. Symlinks are counted but never
// followed into; per-entry permission failures and symlink loops are
// skipped and counted in the manifest's ItemsSkipped, not fatal.
type walker struct {
	fs         fsys.FS
	log        zerolog.Logger
	ignore     []string
	onProgress func(files, dirs, bytes, skipped uint64)
}

func (w *walker) walk(ctx context.Context, item Item, order Order, m *Manifest) error {
	if err := ctx.Err(); err != nil {
		return cancelled("scan cancelled")
	}

	if w.ignored(item.RelPath) {
		return nil
	}

	switch {
	case item.IsSymlink:
		if looped(item.SourcePath) {
			m.ItemsSkipped++
			w.log.Warn().Err(symlinkLoop(item.SourcePath)).Msg("entry skipped")
			return nil
		}
		m.Items = append(m.Items, item)
		m.FilesTotal++
		m.BytesTotal += item.Size
		w.progress(m)
		return nil

	case item.IsDirectory:
		m.Items = append(m.Items, item)
		m.DirsTotal++
		w.progress(m)
		return w.walkDir(ctx, item, order, m)

	default:
		m.Items = append(m.Items, item)
		m.FilesTotal++
		m.BytesTotal += item.Size
		w.progress(m)
		return nil
	}
}

func (w *walker) walkDir(ctx context.Context, dir Item, order Order, m *Manifest) error {
	entries, err := os.ReadDir(dir.SourcePath)
	if err != nil {
		if os.IsPermission(err) {
			m.ItemsSkipped++
			w.log.Warn().Str("path", dir.SourcePath).Msg("permission denied, directory skipped")
			return nil
		}
		if os.IsNotExist(err) {
			// A source root vanishing is fatal; a subdirectory that
			// disappeared after it was listed is skipped and counted.
			if dir.RelPath == filepath.Base(dir.SourcePath) {
				return sourceNotFound(dir.SourcePath)
			}
			m.ItemsSkipped++
			w.log.Warn().Str("path", dir.SourcePath).Msg("directory vanished, skipped")
			return nil
		}
		return ioError(dir.SourcePath, err)
	}

	children := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return cancelled("scan cancelled")
		}

		path := filepath.Join(dir.SourcePath, entry.Name())
		info, err := entry.Info()
		if err != nil {
			m.ItemsSkipped++
			w.log.Warn().Str("path", path).Err(err).Msg("entry skipped")
			continue
		}

		mode := info.Mode()
		isSymlink := mode&os.ModeSymlink != 0
		if !isSymlink && !mode.IsRegular() && !mode.IsDir() {
			// Sockets, pipes and devices have no place at the destination.
			m.ItemsSkipped++
			w.log.Warn().Str("path", path).Msg("special file skipped")
			continue
		}

		children = append(children, Item{
			SourcePath:  path,
			RelPath:     filepath.Join(dir.RelPath, entry.Name()),
			Size:        uint64(info.Size()),
			ModifiedAt:  info.ModTime(),
			IsDirectory: mode.IsDir(),
			IsSymlink:   isSymlink,
		})
	}
	sortItems(children, order)

	for _, child := range children {
		if err := w.walk(ctx, child, order, m); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) ignored(relPath string) bool {
	rel := filepath.ToSlash(relPath)
	for _, glob := range w.ignore {
		if ok, err := doublestar.Match(glob, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *walker) progress(m *Manifest) {
	if w.onProgress != nil {
		w.onProgress(m.FilesTotal, m.DirsTotal, m.BytesTotal, m.ItemsSkipped)
	}
}

// looped reports whether resolving path's symlink chain cycles.
func looped(path string) bool {
	_, err := filepath.EvalSymlinks(path)
	return err != nil && strings.Contains(err.Error(), "too many links")
}
