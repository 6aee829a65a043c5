package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twinpane/pkg/fsys"
)

type sinkEvent struct {
	kind    string
	id      string
	payload interface{}
}

// chanSink buffers emitted events for test assertions.
type chanSink struct {
	ch chan sinkEvent
}

func newChanSink() *chanSink {
	return &chanSink{ch: make(chan sinkEvent, 256)}
}

func (s *chanSink) Emit(kind, id string, payload interface{}) {
	s.ch <- sinkEvent{kind: kind, id: id, payload: payload}
}

// waitFor drains events until one of the given kind arrives.
func (s *chanSink) waitFor(t *testing.T, kind string) sinkEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-s.ch:
			if ev.kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
			return sinkEvent{}
		}
	}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func newTestScanner(sink EventSink, opts ...ScanOption) *Scanner {
	return NewScanner(fsys.Local{}, sink, opts...)
}

func TestCollectTallies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), 5)
	writeFile(t, filepath.Join(src, "sub", "b.txt"), 3)

	s := newTestScanner(nil)
	m, err := s.Collect(context.Background(), []string{src}, DefaultOrder(), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), m.FilesTotal)
	assert.Equal(t, uint64(2), m.DirsTotal)
	assert.Equal(t, uint64(8), m.BytesTotal)

	// Directories precede their children in the manifest.
	require.NotEmpty(t, m.Items)
	assert.True(t, m.Items[0].IsDirectory)
	assert.Equal(t, "src", m.Items[0].RelPath)

	indexOf := func(rel string) int {
		for i, item := range m.Items {
			if item.RelPath == rel {
				return i
			}
		}
		return -1
	}
	subIdx := indexOf(filepath.Join("src", "sub"))
	childIdx := indexOf(filepath.Join("src", "sub", "b.txt"))
	require.GreaterOrEqual(t, subIdx, 0)
	require.GreaterOrEqual(t, childIdx, 0)
	assert.Less(t, subIdx, childIdx, "parent directory must be listed before its child")
}

func TestCollectIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), 100)
	writeFile(t, filepath.Join(src, "b", "c.txt"), 200)

	s := newTestScanner(nil)
	first, err := s.Collect(context.Background(), []string{src}, DefaultOrder(), nil)
	require.NoError(t, err)
	second, err := s.Collect(context.Background(), []string{src}, DefaultOrder(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.FilesTotal, second.FilesTotal)
	assert.Equal(t, first.DirsTotal, second.DirsTotal)
	assert.Equal(t, first.BytesTotal, second.BytesTotal)
}

func TestCollectSizeOrder(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.txt")
	small := filepath.Join(dir, "small.txt")
	writeFile(t, big, 100)
	writeFile(t, small, 1)

	s := newTestScanner(nil)

	m, err := s.Collect(context.Background(), []string{big, small},
		Order{Column: SortBySize, Direction: SortAscending}, nil)
	require.NoError(t, err)
	require.Len(t, m.Items, 2)
	assert.Equal(t, "small.txt", m.Items[0].RelPath)

	m, err = s.Collect(context.Background(), []string{big, small},
		Order{Column: SortBySize, Direction: SortDescending}, nil)
	require.NoError(t, err)
	assert.Equal(t, "big.txt", m.Items[0].RelPath)
}

func TestCollectMissingSource(t *testing.T) {
	s := newTestScanner(nil)
	_, err := s.Collect(context.Background(), []string{filepath.Join(t.TempDir(), "gone")}, DefaultOrder(), nil)
	require.Error(t, err)
	assert.Equal(t, CodeSourceNotFound, AsOpError(err).Code)
}

func TestCollectIgnoreGlobs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "keep.txt"), 10)
	writeFile(t, filepath.Join(src, "junk.tmp"), 10)

	s := newTestScanner(nil, WithIgnoreGlobs([]string{"**/*.tmp"}))
	m, err := s.Collect(context.Background(), []string{src}, DefaultOrder(), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), m.FilesTotal)
	assert.Equal(t, uint64(10), m.BytesTotal)
}

func TestCollectSymlinkNotFollowed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	target := filepath.Join(src, "target")
	writeFile(t, filepath.Join(target, "inner.txt"), 50)
	require.NoError(t, os.Symlink(target, filepath.Join(src, "link")))

	s := newTestScanner(nil)
	m, err := s.Collect(context.Background(), []string{src}, DefaultOrder(), nil)
	require.NoError(t, err)

	// inner.txt once via target, the link itself counted as a file.
	assert.Equal(t, uint64(2), m.FilesTotal)
	assert.Equal(t, uint64(2), m.DirsTotal)
}

func TestCollectCountsSymlinkLoopSkipped(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), 10)
	require.NoError(t, os.Symlink(filepath.Join(src, "loop"), filepath.Join(src, "loop")))

	s := newTestScanner(nil)
	m, err := s.Collect(context.Background(), []string{src}, DefaultOrder(), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), m.FilesTotal, "looped symlink excluded from the manifest")
	assert.Equal(t, uint64(1), m.ItemsSkipped)
}

func TestScanCompleteCarriesSkippedCount(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), 10)
	require.NoError(t, os.Symlink(filepath.Join(src, "loop"), filepath.Join(src, "loop")))

	sink := newChanSink()
	s := newTestScanner(sink)
	id := s.Start(context.Background(), []string{src}, DefaultOrder(), 0)

	ev := sink.waitFor(t, EventScanComplete)
	payload := ev.payload.(ScanComplete)
	assert.Equal(t, uint64(1), payload.FilesTotal)
	assert.Equal(t, uint64(1), payload.ItemsSkipped)

	snap, ok := s.Status(id)
	require.True(t, ok)
	assert.Equal(t, uint64(1), snap.ItemsSkipped)
}

func TestWalkVanishedSubdirectorySkipped(t *testing.T) {
	w := &walker{log: zerolog.Nop()}
	m := &Manifest{}

	// A subdirectory gone between listing and reading is skipped.
	sub := Item{
		SourcePath:  filepath.Join(t.TempDir(), "root", "gone"),
		RelPath:     filepath.Join("root", "gone"),
		IsDirectory: true,
	}
	require.NoError(t, w.walkDir(context.Background(), sub, DefaultOrder(), m))
	assert.Equal(t, uint64(1), m.ItemsSkipped)

	// A vanished source root is still fatal.
	rootPath := filepath.Join(t.TempDir(), "root")
	root := Item{
		SourcePath:  rootPath,
		RelPath:     filepath.Base(rootPath),
		IsDirectory: true,
	}
	err := w.walkDir(context.Background(), root, DefaultOrder(), m)
	require.Error(t, err)
	assert.Equal(t, CodeSourceNotFound, AsOpError(err).Code)
}

func TestScannerTerminalEvent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), 7)

	sink := newChanSink()
	s := newTestScanner(sink)
	id := s.Start(context.Background(), []string{src}, DefaultOrder(), 0)
	require.NotEmpty(t, id)

	ev := sink.waitFor(t, EventScanComplete)
	assert.Equal(t, id, ev.id)
	payload, ok := ev.payload.(ScanComplete)
	require.True(t, ok)
	assert.Equal(t, uint64(1), payload.FilesTotal)
	assert.Equal(t, uint64(7), payload.BytesTotal)

	// No second terminal event follows.
	select {
	case extra := <-sink.ch:
		assert.False(t, TerminalKind(extra.kind), "unexpected extra terminal event %s", extra.kind)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestScannerManifestConsumedOnce(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), 7)

	sink := newChanSink()
	s := newTestScanner(sink)
	id := s.Start(context.Background(), []string{src}, DefaultOrder(), 0)
	sink.waitFor(t, EventScanComplete)

	m, ok := s.TakeManifest(id)
	require.True(t, ok)
	assert.Equal(t, uint64(1), m.FilesTotal)

	_, ok = s.TakeManifest(id)
	assert.False(t, ok, "manifest must be consumable exactly once")
}

func TestScannerCancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newChanSink()
	s := newTestScanner(sink)
	id := s.Start(ctx, []string{src}, DefaultOrder(), 0)

	ev := sink.waitFor(t, EventScanCancelled)
	assert.Equal(t, id, ev.id)
}

func TestScannerErrorOnMissingRoot(t *testing.T) {
	sink := newChanSink()
	s := newTestScanner(sink)
	id := s.Start(context.Background(), []string{filepath.Join(t.TempDir(), "gone")}, DefaultOrder(), 0)

	ev := sink.waitFor(t, EventScanError)
	assert.Equal(t, id, ev.id)
	payload, ok := ev.payload.(ScanError)
	require.True(t, ok)
	assert.Contains(t, payload.Message, "source_not_found")
}
