// Package cli wires pkg/sorter's Database to everything a standalone
// executable needs around it: the configured git backend, event hooks, and
// the TUI/progress presentation. This package splits Run into one function
// per subcommand rather than a single entry point, because
// update-masterlist and validate only touch the metadata/git layers and
// must keep working even when no plugin.Decoder or loadorder.Probe has been
// supplied.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/CartoonFan/libloot/internal/cli/config"
	climgit "github.com/CartoonFan/libloot/internal/cli/git"
	"github.com/CartoonFan/libloot/internal/cli/hooks"
	"github.com/CartoonFan/libloot/pkg/sorter"
	"github.com/CartoonFan/libloot/pkg/sorter/condition"
	libgit "github.com/CartoonFan/libloot/pkg/sorter/git"
	"github.com/CartoonFan/libloot/pkg/sorter/metadata"
)

// ErrMissingCollaborator is returned by RunSort when no plugin.Decoder/
// loadorder.Probe pair was supplied to Options: decoding a game's binary
// plugin files and probing its installed/active/load-order state are
// capabilities this module scopes out of entirely, so a bare loot-sort
// build has no default and update-masterlist/validate/explain are the only
// commands that function without one.
var ErrMissingCollaborator = errors.New("no plugin decoder/load-order probe configured; link a game-specific implementation to use sort")

// masterlistLocalPath derives the local clone directory for the masterlist
// repository from configuration, defaulting to a dot-directory beside the
// game's data path when the masterlist path itself gives no usable parent.
func masterlistLocalPath(cfg config.AppConfig) string {
	if dir := filepath.Dir(cfg.MasterlistPath); dir != "" && dir != "." {
		return dir
	}
	return filepath.Join(filepath.Dir(cfg.DataPath), ".loot-sort", "masterlist")
}

// RunUpdateMasterlist fetches the configured masterlist remote into its
// local clone and reports the resulting revision, without requiring a
// Decoder or Probe.
func RunUpdateMasterlist(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (changed bool, info libgit.RevisionInfo, err error) {
	if cfg.MasterlistRemote == "" {
		return false, libgit.RevisionInfo{}, fmt.Errorf("%w: --masterlist-remote is required", config.ErrConfigValidation)
	}
	repo := climgit.New(logger.Handler())
	updater := libgit.NewUpdater(repo, logger.Handler(), cfg.MasterlistSparseExcludes...)
	doc := metadata.New()

	localPath := masterlistLocalPath(cfg)
	changed, err = updater.Update(ctx, localPath, cfg.MasterlistRemote, cfg.MasterlistBranch, cfg.MasterlistFile, doc)
	if err != nil {
		return false, libgit.RevisionInfo{}, fmt.Errorf("updating masterlist: %w", err)
	}
	info, err = updater.GetInfo(ctx, localPath, cfg.MasterlistFile, true)
	if err != nil {
		return changed, libgit.RevisionInfo{}, fmt.Errorf("reading masterlist revision: %w", err)
	}
	logger.Info("masterlist update finished", slog.Bool("changed", changed), slog.String("revision", info.RevisionID))
	return changed, info, nil
}

// ValidateReport summarises a validate run: the document loaded cleanly, or
// it did not, with the error spelled out, plus any schema violations found
// by the defense-in-depth schema check.
type ValidateReport struct {
	Path             string
	PluginCount      int
	GroupCount       int
	ParsedOK         bool
	ErrorMessage     string
	SchemaViolations []metadata.ValidationError
}

// RunValidate runs metadata.Validate against path's raw bytes as a
// defense-in-depth schema check, then loads path as a metadata document,
// without running a sort and without requiring a Decoder or Probe. A
// document with schema violations is reported invalid even if Load itself
// succeeds, since Load's typed decoding is more permissive than the schema
// (e.g. it tolerates some shapes the schema flags but json/yaml can still
// coerce).
func RunValidate(path string) ValidateReport {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ValidateReport{Path: path, ErrorMessage: err.Error()}
	}

	violations, err := metadata.Validate(raw)
	if err != nil {
		return ValidateReport{Path: path, ErrorMessage: err.Error()}
	}

	doc := metadata.New()
	if err := doc.Load(path); err != nil {
		return ValidateReport{Path: path, ErrorMessage: err.Error(), SchemaViolations: violations}
	}

	return ValidateReport{
		Path:             path,
		PluginCount:      len(doc.ExactPlugins) + len(doc.RegexPlugins),
		GroupCount:       len(doc.Groups),
		ParsedOK:         len(violations) == 0,
		SchemaViolations: violations,
	}
}

// RunSort constructs a Database from cfg and opts, optionally updates the
// masterlist first, loads both metadata lists, and performs the sort.
// opts.Decoder and opts.Probe must already be set by the caller; this
// function does not supply defaults for them.
func RunSort(ctx context.Context, cfg config.AppConfig, logger *slog.Logger, opts sorter.Options, tuiProgram hooks.TUIProgram) (sorter.Report, error) {
	if opts.Decoder == nil || opts.Probe == nil {
		return sorter.Report{}, ErrMissingCollaborator
	}

	opts.Logger = logger.Handler()
	opts.DataPath = cfg.DataPath
	opts.SelfPath = cfg.SelfPath
	opts.PreferredLanguage = cfg.Language
	opts.Hooks = hooks.NewCLIHooks(logger, cfg.TuiEnabled, cfg.Verbose, tuiProgram)

	db, err := sorter.New(opts)
	if err != nil {
		return sorter.Report{}, fmt.Errorf("constructing database: %w", err)
	}

	if cfg.UpdateMasterlist {
		repo := climgit.New(opts.Logger)
		db.UseRepository(repo, cfg.MasterlistSparseExcludes...)
		changed, err := db.UpdateMasterlist(ctx, masterlistLocalPath(cfg), cfg.MasterlistRemote, cfg.MasterlistBranch, cfg.MasterlistFile)
		if err != nil {
			return sorter.Report{}, fmt.Errorf("updating masterlist: %w", err)
		}
		logger.Debug("masterlist update finished", slog.Bool("changed", changed))
	}

	if err := db.LoadLists(cfg.MasterlistPath, cfg.UserlistPath); err != nil {
		return sorter.Report{}, fmt.Errorf("loading metadata lists: %w", err)
	}

	return db.GenerateOrder(ctx)
}

// RunExplain parses expr and reports its syntax validity and, where a live
// plugin cache and load order handler are wired in, its result. A bare
// loot-sort build with no Decoder/Probe runs this in parse-only mode: the
// returned bool is always false for a non-empty expr, matching
// condition.Evaluator's documented parse-only behavior.
func RunExplain(dataPath, selfPath, expr string, logger *slog.Logger) (bool, error) {
	eval := condition.New(dataPath, selfPath, nil, nil, nil, logger.Handler())
	return eval.Evaluate(expr)
}
