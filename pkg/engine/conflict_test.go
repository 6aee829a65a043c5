package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twinpane/pkg/fsys"
)

func TestDetectFindsExistingNames(t *testing.T) {
	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "taken.txt"), 42)

	d := NewDetector(fsys.Local{})
	items := []ConflictItem{
		{Name: "taken.txt", Size: 10, ModifiedAt: time.Now()},
		{Name: "free.txt", Size: 20, ModifiedAt: time.Now()},
	}

	conflicts := d.Detect(dest, items, 0)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "taken.txt", conflicts[0].Name)
	assert.Equal(t, uint64(10), conflicts[0].SourceSize)
	assert.Equal(t, uint64(42), conflicts[0].ExistingSize)
	assert.False(t, conflicts[0].ExistingModifiedAt.IsZero())
}

func TestDetectCapsResults(t *testing.T) {
	dest := t.TempDir()
	items := make([]ConflictItem, 10)
	for i := range items {
		name := string(rune('a'+i)) + ".txt"
		writeFile(t, filepath.Join(dest, name), 1)
		items[i] = ConflictItem{Name: name, Size: 1}
	}

	d := NewDetector(fsys.Local{})
	conflicts := d.Detect(dest, items, 3)
	assert.Len(t, conflicts, 3)
}

func TestDetectNotRecursive(t *testing.T) {
	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "nested", "deep.txt"), 1)

	d := NewDetector(fsys.Local{})
	conflicts := d.Detect(dest, []ConflictItem{{Name: "deep.txt", Size: 1}}, 0)
	assert.Empty(t, conflicts, "only direct children of the destination count")
}

func TestDetectReadOnly(t *testing.T) {
	dest := t.TempDir()
	existing := filepath.Join(dest, "file.txt")
	writeFile(t, existing, 5)
	before, err := os.Stat(existing)
	require.NoError(t, err)

	d := NewDetector(fsys.Local{})
	d.Detect(dest, []ConflictItem{{Name: "file.txt", Size: 99}}, 0)

	after, err := os.Stat(existing)
	require.NoError(t, err)
	assert.Equal(t, before.Size(), after.Size())
	assert.Equal(t, before.ModTime(), after.ModTime())
}
