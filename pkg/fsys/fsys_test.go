package fsys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPathExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	fs := Local{}
	assert.True(t, fs.PathExists(file))
	assert.True(t, fs.PathExists(dir))
	assert.False(t, fs.PathExists(filepath.Join(dir, "missing")))
}

func TestLocalPathExistsBrokenSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), link))

	// A dangling symlink still occupies its name at the destination.
	assert.True(t, Local{}.PathExists(link))
}

func TestLocalStatEntry(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	fs := Local{}

	info, err := fs.StatEntry(file)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), info.Size)
	assert.False(t, info.IsDirectory)
	assert.False(t, info.IsSymlink)
	assert.False(t, info.ModifiedAt.IsZero())

	info, err = fs.StatEntry(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDirectory)

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(file, link))
	info, err = fs.StatEntry(link)
	require.NoError(t, err)
	assert.True(t, info.IsSymlink)
	assert.False(t, info.IsDirectory)

	_, err = fs.StatEntry(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLocalFreeSpace(t *testing.T) {
	free, err := Local{}.FreeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}
