package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CartoonFan/libloot/pkg/sorter/metadata"
	"github.com/CartoonFan/libloot/pkg/util"
)

// ErrInvalidArgument signals an empty remote URL or branch name.
var ErrInvalidArgument = errors.New("invalid masterlist update argument")

// maxDetachRetries bounds the "detach HEAD to HEAD^ and retry" loop so a
// masterlist with no parseable revision anywhere in its history cannot spin
// forever.
const maxDetachRetries = 50

// Updater is a revision-tracked fetch of masterlist text with
// retry-on-parse-failure via rollback.
type Updater struct {
	repo           Repository
	logger         *slog.Logger
	sparseExcludes []string
}

// NewUpdater wraps repo in an Updater. sparseExcludes, if given, are
// gitignore-style patterns (relative to the clone root) identifying paths
// the clone's repository carries but this masterlist never needs -
// unrelated games' metadata in a shared multi-game repository, docs,
// CI config - pruned from the local working copy after every fetch so a
// long-lived clone doesn't accumulate disk it never reads.
func NewUpdater(repo Repository, loggerHandler slog.Handler, sparseExcludes ...string) *Updater {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	return &Updater{
		repo:           repo,
		logger:         slog.New(loggerHandler).With(slog.String("component", "masterlistUpdater")),
		sparseExcludes: sparseExcludes,
	}
}

// Update ensures localPath holds a clone of remoteURL tracking branch, at a
// revision whose masterlistFile parses; on a parse failure it detaches HEAD
// to its parent and retries. doc is loaded in place on success. Returns
// whether the working copy changed.
func (u *Updater) Update(ctx context.Context, localPath, remoteURL, branch, masterlistFile string, doc *metadata.MetadataDocument) (bool, error) {
	if remoteURL == "" || branch == "" {
		return false, fmt.Errorf("%w: remote URL and branch must both be non-empty", ErrInvalidArgument)
	}

	if err := u.repo.EnsureClone(ctx, localPath, remoteURL); err != nil {
		return false, err
	}

	changed, err := u.repo.FetchAndTrack(ctx, localPath, branch)
	if err != nil {
		return false, err
	}

	if changed && len(u.sparseExcludes) > 0 {
		if err := u.pruneSparseExcludes(localPath); err != nil {
			u.logger.Warn("pruning sparse-checkout excludes failed", slog.String("error", err.Error()))
		}
	}

	path := filepath.Join(localPath, masterlistFile)
	for attempt := 0; ; attempt++ {
		loadErr := doc.Load(path)
		if loadErr == nil {
			return changed, nil
		}
		if !errors.Is(loadErr, metadata.ErrDocumentFormat) {
			return changed, loadErr
		}
		if attempt >= maxDetachRetries {
			return changed, fmt.Errorf("%w: masterlist did not parse after %d rollbacks: %v", ErrGitOperation, maxDetachRetries, loadErr)
		}
		u.logger.Warn("masterlist failed to parse, detaching to parent revision and retrying",
			slog.Int("attempt", attempt+1), slog.String("error", loadErr.Error()))
		if err := u.repo.DetachToParent(ctx, localPath); err != nil {
			return changed, err
		}
		changed = true
	}
}

// GetInfo reports the masterlist's current revision.
func (u *Updater) GetInfo(ctx context.Context, localPath, masterlistFile string, shortID bool) (RevisionInfo, error) {
	return u.repo.GetInfo(ctx, localPath, masterlistFile, shortID)
}

// pruneSparseExcludes removes every file and directory under localPath
// (other than .git itself) whose path relative to localPath matches one of
// u.sparseExcludes, emulating a sparse checkout for backends that always
// fetch the whole tree.
func (u *Updater) pruneSparseExcludes(localPath string) error {
	var toRemove []string
	err := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == localPath {
			return nil
		}
		rel, relErr := filepath.Rel(localPath, path)
		if relErr != nil {
			return nil
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		for _, pattern := range u.sparseExcludes {
			if util.MatchesGitignore(pattern, localPath, localPath, rel, false) {
				toRemove = append(toRemove, path)
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking masterlist clone for sparse excludes: %w", err)
	}
	for _, path := range toRemove {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing sparse-excluded path %q: %w", path, err)
		}
		u.logger.Debug("pruned sparse-checkout exclude", slog.String("path", path))
	}
	return nil
}
