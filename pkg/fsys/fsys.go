// Package fsys is the filesystem collaborator consumed by the transfer
// engine. It exposes the three read-only calls the engine needs
// (existence, stat, free space) behind an interface so tests and remote
// volumes can substitute their own implementation.
package fsys

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// EntryInfo is the stat snapshot for one filesystem entry.
type EntryInfo struct {
	Size        uint64    `json:"size"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	IsDirectory bool      `json:"isDirectory"`
	IsSymlink   bool      `json:"isSymlink"`
}

// FS is the read-only filesystem surface the engine depends on.
type FS interface {
	// PathExists reports whether path exists (without following a
	// trailing symlink).
	PathExists(path string) bool
	// StatEntry returns metadata for path without following symlinks.
	StatEntry(path string) (EntryInfo, error)
	// FreeSpace returns the free bytes on the volume containing
	// volumePath. Best effort: callers must tolerate an error.
	FreeSpace(volumePath string) (uint64, error)
}

// StatTimeout bounds a single stat call on Local so one unresponsive
// mount cannot stall progress reporting. Callers layering their own
// guard must not assume a shorter timeout than this one.
const StatTimeout = 10 * time.Second

// Local implements FS against the local filesystem. Stat calls are
// time-bounded: the syscall runs in its own goroutine and the caller
// waits at most Timeout for it.
type Local struct {
	// Timeout overrides StatTimeout when non-zero.
	Timeout time.Duration
}

type statResult struct {
	info EntryInfo
	err  error
}

func (l Local) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return StatTimeout
}

// PathExists reports whether path exists. A symlink whose target is
// gone still exists for conflict purposes, so Lstat is used.
func (l Local) PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// StatEntry stats path with the configured timeout. A stat that
// outlives the timeout is abandoned; its goroutine finishes (or hangs)
// on its own without holding up the caller.
func (l Local) StatEntry(path string) (EntryInfo, error) {
	ch := make(chan statResult, 1)
	go func() {
		info, err := os.Lstat(path)
		if err != nil {
			ch <- statResult{err: err}
			return
		}
		ch <- statResult{info: EntryInfo{
			Size:        uint64(info.Size()),
			ModifiedAt:  info.ModTime(),
			IsDirectory: info.IsDir(),
			IsSymlink:   info.Mode()&os.ModeSymlink != 0,
		}}
	}()

	select {
	case res := <-ch:
		return res.info, res.err
	case <-time.After(l.timeout()):
		return EntryInfo{}, fmt.Errorf("stat %s: timed out after %v", path, l.timeout())
	}
}

// FreeSpace queries free bytes on the volume containing volumePath.
func (l Local) FreeSpace(volumePath string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(volumePath, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", volumePath, err)
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
