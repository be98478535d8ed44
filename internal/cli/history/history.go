// Package history persists a small TOML-backed record of prior sort runs,
// so "loot-sort sort --show-history" can show what changed since last time.
// Persistence follows an atomic write-then-rename idiom: encode to a temp
// file beside the target, then os.Rename into place, so a crash mid-write
// never corrupts the history file a concurrent reader might be looking at.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the run-history file used when the CLI is not given an
// explicit override.
const DefaultPath = ".cache/loot-sort/history.toml"

// MaxEntries bounds the file's growth: only the most recent runs are kept.
const MaxEntries = 50

// Run is one recorded sort invocation.
type Run struct {
	Timestamp           string `toml:"timestamp"` // RFC3339, UTC
	Game                string `toml:"game"`
	PluginCount         int    `toml:"plugin_count"`
	CycleDetected       bool   `toml:"cycle_detected"`
	MasterlistRevision  string `toml:"masterlist_revision,omitempty"`
}

// document is the TOML file's root shape.
type document struct {
	Runs []Run `toml:"runs"`
}

// ErrHistoryFormat indicates a history file that exists but cannot be
// decoded as TOML.
var ErrHistoryFormat = errors.New("run history file is not valid TOML")

// DefaultFilePath returns DefaultPath rooted under the user's cache
// directory, falling back to the home directory's .cache if os.UserCacheDir
// is unavailable (as it can be in minimal containers).
func DefaultFilePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "loot-sort", "history.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultPath
	}
	return filepath.Join(home, DefaultPath)
}

// Load reads path as a history document. A missing file is not an error: it
// reports an empty history, the same as a fresh install.
func Load(path string) ([]Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run history %q: %w", path, err)
	}
	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryFormat, err)
	}
	return doc.Runs, nil
}

// Append loads the existing history at path, adds run, trims to MaxEntries
// (dropping the oldest), and writes the result back atomically. A malformed
// existing file is treated as empty rather than blocking every future run.
func Append(path string, run Run) error {
	runs, err := Load(path)
	if err != nil && !errors.Is(err, ErrHistoryFormat) {
		return err
	}
	runs = append(runs, run)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp < runs[j].Timestamp })
	if len(runs) > MaxEntries {
		runs = runs[len(runs)-MaxEntries:]
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run history directory %q: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary run history file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	if err := toml.NewEncoder(tempFile).Encode(document{Runs: runs}); err != nil {
		return fmt.Errorf("encoding run history: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("closing temporary run history file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replacing run history file %q: %w", path, err)
	}
	return nil
}
