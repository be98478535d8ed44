package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateDummyFile writes content to path, creating parent directories first.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755), "creating directory for %s", fullPath)
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644), "writing dummy file %s", fullPath)
}

// CreateDummyDir ensures path exists, creating parents as needed.
func CreateDummyDir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Clean(path), 0o755), "creating dummy directory %s", path)
}
