package engine

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SortColumn selects which attribute orders the scan manifest.
type SortColumn string

const (
	SortByName      SortColumn = "name"
	SortByExtension SortColumn = "extension"
	SortBySize      SortColumn = "size"
	SortByModified  SortColumn = "modified"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Order is the traversal order requested by the caller. The transfer
// processes items in this same order so it matches what the user saw.
type Order struct {
	Column    SortColumn    `json:"column"`
	Direction SortDirection `json:"direction"`
}

// DefaultOrder is name ascending.
func DefaultOrder() Order {
	return Order{Column: SortByName, Direction: SortAscending}
}

// Item is one resolved entry of a scan manifest. RelPath is relative to the
// destination root and always starts with the source root's leaf name, so
// a directory item precedes everything inside it.
type Item struct {
	SourcePath  string    `json:"sourcePath"`
	RelPath     string    `json:"relPath"`
	Size        uint64    `json:"size"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	IsDirectory bool      `json:"isDirectory"`
	IsSymlink   bool      `json:"isSymlink"`
}

// DestPath resolves the item's destination under destRoot.
func (it Item) DestPath(destRoot string) string {
	return filepath.Join(destRoot, it.RelPath)
}

// Manifest is the ordered list of resolved source items plus the frozen
// totals a transfer runs against. Directories appear before their children.
type Manifest struct {
	Items      []Item `json:"items"`
	FilesTotal uint64 `json:"filesTotal"`
	DirsTotal  uint64 `json:"dirsTotal"`
	BytesTotal uint64 `json:"bytesTotal"`
	// ItemsSkipped counts entries dropped during the walk (permission
	// failures, symlink loops, special files, vanished directories).
	ItemsSkipped uint64 `json:"itemsSkipped"`
}

// sortItems orders sibling entries in place per the requested column and
// direction. Ties and the extension column fall back to name so the order
// is deterministic.
func sortItems(items []Item, order Order) {
	less := func(a, b Item) bool {
		switch order.Column {
		case SortBySize:
			if a.Size != b.Size {
				return a.Size < b.Size
			}
		case SortByModified:
			if !a.ModifiedAt.Equal(b.ModifiedAt) {
				return a.ModifiedAt.Before(b.ModifiedAt)
			}
		case SortByExtension:
			ea := strings.ToLower(filepath.Ext(a.SourcePath))
			eb := strings.ToLower(filepath.Ext(b.SourcePath))
			if ea != eb {
				return ea < eb
			}
		}
		return strings.ToLower(filepath.Base(a.SourcePath)) < strings.ToLower(filepath.Base(b.SourcePath))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if order.Direction == SortDescending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
