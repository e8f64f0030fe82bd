package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_WritesAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0644))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0644))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestAtomicWriteFile_AppliesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.json")

	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0600))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAtomicWriteFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AtomicWriteFile(filepath.Join(dir, "a.json"), []byte("x"), 0644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestGenerateID_FormatAndUniqueness(t *testing.T) {
	hex24 := regexp.MustCompile(`^[0-9a-f]{24}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		assert.Regexp(t, hex24, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
