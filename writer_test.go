package kvenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	require.NoError(t, WriteArtifact(path, []byte("A=1\n")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A=1\n", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteArtifactReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("OLD=1\n"), 0o644))

	require.NoError(t, WriteArtifact(path, []byte("NEW=2\n")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "NEW=2\n", string(got))
}

func TestWriteArtifactLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteArtifact(filepath.Join(dir, ".env"), []byte("A=1\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".env", entries[0].Name())
}
