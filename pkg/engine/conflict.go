package engine

import (
	"path/filepath"
	"time"

	"twinpane/pkg/fsys"
)

// DefaultMaxConflicts caps how many conflicts a single detection returns.
// The cap bounds response size on huge transfers; the transfer itself still
// re-checks every item against its conflict policy.
const DefaultMaxConflicts = 100

// ConflictItem is one candidate source item for conflict detection.
type ConflictItem struct {
	Name       string    `json:"name"`
	Size       uint64    `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ConflictRecord describes a destination collision with enough detail for
// the caller to render an informed choice without another round trip.
type ConflictRecord struct {
	Name               string    `json:"name"`
	SourceSize         uint64    `json:"sourceSize"`
	SourceModifiedAt   time.Time `json:"sourceModifiedAt"`
	ExistingSize       uint64    `json:"existingSize"`
	ExistingModifiedAt time.Time `json:"existingModifiedAt"`
}

// Detector finds which candidate items would overwrite existing entries
// directly under a destination directory. It is read-only and takes no
// locks; a result can go stale before the transfer starts, which is why
// the transfer re-checks existence at write time.
type Detector struct {
	fs fsys.FS
}

// NewDetector creates a Detector.
func NewDetector(fs fsys.FS) *Detector {
	return &Detector{fs: fs}
}

// Detect checks each item's name directly under destPath (not recursively)
// and returns up to maxResults conflicts. maxResults <= 0 applies
// DefaultMaxConflicts.
func (d *Detector) Detect(destPath string, items []ConflictItem, maxResults int) []ConflictRecord {
	if maxResults <= 0 {
		maxResults = DefaultMaxConflicts
	}

	conflicts := make([]ConflictRecord, 0)
	for _, item := range items {
		if len(conflicts) >= maxResults {
			break
		}
		target := filepath.Join(destPath, item.Name)
		if !d.fs.PathExists(target) {
			continue
		}
		rec := ConflictRecord{
			Name:             item.Name,
			SourceSize:       item.Size,
			SourceModifiedAt: item.ModifiedAt,
		}
		if info, err := d.fs.StatEntry(target); err == nil {
			rec.ExistingSize = info.Size
			rec.ExistingModifiedAt = info.ModifiedAt
		}
		conflicts = append(conflicts, rec)
	}
	return conflicts
}
