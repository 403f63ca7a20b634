package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain path", "/tmp/x", "/tmp/x"},
		{"relative path", "scripts/a.json", "scripts/a.json"},
		{"tilde only", "~", homeDir},
		{"tilde prefix", "~/scripts", filepath.Join(homeDir, "scripts")},
		{"tilde user form untouched", "~other/x", "~other/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.txt")

	assert.False(t, FileExists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(tmpDir), "directories are not files")
}

func TestWriteFileAtomic(t *testing.T) {
	tmpDir := t.TempDir()
	dst := filepath.Join(tmpDir, "script.json")

	require.NoError(t, WriteFileAtomic(dst, []byte("first"), 0644))
	require.NoError(t, WriteFileAtomic(dst, []byte("second"), 0600))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "a.json"), []byte("x"), 0644)
	assert.Error(t, err)
}
