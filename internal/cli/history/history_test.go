package history_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartoonFan/libloot/internal/cli/history"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	runs, err := history.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoadMalformedFileReturnsErrHistoryFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [ valid toml"), 0o644))
	_, err := history.Load(path)
	assert.ErrorIs(t, err, history.ErrHistoryFormat)
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.toml")
	run := history.Run{Timestamp: "2026-08-06T12:00:00Z", Game: "skyrimse", PluginCount: 42}
	require.NoError(t, history.Append(path, run))

	runs, err := history.Load(path)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0])
}

func TestAppendTrimsToMaxEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.toml")
	for i := 0; i < history.MaxEntries+5; i++ {
		run := history.Run{Timestamp: timestampFor(i), Game: "skyrimse", PluginCount: i}
		require.NoError(t, history.Append(path, run))
	}

	runs, err := history.Load(path)
	require.NoError(t, err)
	assert.Len(t, runs, history.MaxEntries)
	assert.Equal(t, 5, runs[0].PluginCount, "oldest entries should be dropped first")
}

func TestAppendRecoversFromMalformedExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [ valid toml"), 0o644))

	run := history.Run{Timestamp: "2026-08-06T12:00:00Z", Game: "skyrimse", PluginCount: 1}
	require.NoError(t, history.Append(path, run))

	runs, err := history.Load(path)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

// timestampFor produces increasing, sortable RFC3339-shaped timestamps
// without calling time.Now, which the sorter explicitly avoids relying on.
func timestampFor(i int) string {
	return "2026-01-01T00:" + padTwoDigits(i/60) + ":" + padTwoDigits(i%60) + "Z"
}

func padTwoDigits(n int) string {
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}
