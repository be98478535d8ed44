// Package hooks bridges pkg/sorter's event callbacks to the CLI's
// presentation layer (TUI, verbose logging, or a plain progress bar).
package hooks

import (
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	progressbar "github.com/schollz/progressbar/v3"

	"github.com/CartoonFan/libloot/pkg/sorter"
)

// TUIProgram is the subset of *tea.Program CLIHooks needs, decoupling this
// package from internal/cli/ui's concrete Model.
type TUIProgram interface {
	Send(msg tea.Msg)
}

type noOpTUIProgram struct{}

func (noOpTUIProgram) Send(tea.Msg) {}

// PluginsLoadedMsg, SortCompleteMsg, and MasterlistUpdatedMsg are the
// messages CLIHooks sends to a TUIProgram, one per sorter.Hooks method.
type PluginsLoadedMsg struct{ Count int }
type SortCompleteMsg struct{ Order []string }
type MasterlistUpdatedMsg struct {
	Changed    bool
	RevisionID string
}

// CLIHooks implements sorter.Hooks, routing each event to the TUI when
// enabled, to the logger in verbose mode, or to a plain progress bar
// otherwise.
type CLIHooks struct {
	logger     *slog.Logger
	tuiEnabled bool
	verbose    bool
	tuiProgram TUIProgram
	bar        *progressbar.ProgressBar
	mu         sync.Mutex
}

// NewCLIHooks constructs a CLIHooks. tuiProgram may be nil (no-op) when the
// TUI is disabled.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verbose bool, tuiProgram TUIProgram) sorter.Hooks {
	if tuiProgram == nil {
		tuiProgram = noOpTUIProgram{}
	}
	return &CLIHooks{logger: logger, tuiEnabled: tuiEnabled, verbose: verbose, tuiProgram: tuiProgram}
}

func (h *CLIHooks) OnPluginsLoaded(count int) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(PluginsLoadedMsg{Count: count})
		return nil
	}
	if h.verbose {
		h.logger.Debug("plugins loaded", slog.Int("count", count))
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bar = progressbar.Default(int64(count), "sorting plugins")
	return nil
}

func (h *CLIHooks) OnSortComplete(order []string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(SortCompleteMsg{Order: order})
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar != nil {
		_ = h.bar.Finish()
	}
	if h.verbose {
		h.logger.Debug("sort complete", slog.Int("count", len(order)))
	}
	return nil
}

func (h *CLIHooks) OnMasterlistUpdated(changed bool, revisionID string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(MasterlistUpdatedMsg{Changed: changed, RevisionID: revisionID})
		return nil
	}
	if changed {
		h.logger.Info("masterlist updated", slog.String("revision", revisionID))
	} else {
		h.logger.Debug("masterlist already up to date", slog.String("revision", revisionID))
	}
	return nil
}
