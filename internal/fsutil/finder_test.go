package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.cache", "a.cache", "notes.txt", ".hidden.cache.tmp-1"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.cache"), 0o755))

	files, err := ListByExtension(dir, ".cache")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.cache"),
		filepath.Join(dir, "b.cache"),
	}, files)
}

func TestListByExtensionMissingDir(t *testing.T) {
	files, err := ListByExtension(filepath.Join(t.TempDir(), "does-not-exist"), ".cache")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListByExtensionEmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = ListByExtension(t.TempDir(), "")
	})
}
