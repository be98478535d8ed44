// Package git defines the masterlist-repository capability: the small
// interface a masterlist updater needs from a revision-controlled local
// clone, and the sentinel errors its implementations wrap. Concrete
// backends live in internal/cli/git (dual go-git / os-exec, build-tag
// gated).
package git

import (
	"context"
	"errors"
	"fmt"
)

// ErrGitOperation indicates a failure interacting with the local clone or
// the remote: missing repository, unreachable remote, invalid reference.
// Implementations wrap this with fmt.Errorf("%w:...") so callers can test
// with errors.Is(err, ErrGitOperation).
var ErrGitOperation = errors.New("git operation failed")

// Errorf formats an error wrapping ErrGitOperation, for use by Repository
// implementations.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrGitOperation}, args...)...)
}

// RevisionInfo is the answer to GetInfo.
type RevisionInfo struct {
	RevisionID string
	Date       string // UTC, yyyy-mm-dd
	IsModified bool
}

// Repository is the capability a masterlist update needs from a local,
// revision-tracked clone of the masterlist's hosting repository.
type Repository interface {
	// EnsureClone opens localPath as a repository, cloning remoteURL into
	// it first if it does not yet exist.
	EnsureClone(ctx context.Context, localPath, remoteURL string) error
	// FetchAndTrack fetches origin, ensures a local branch tracks
	// origin/branch (creating or resetting it as needed), and fast-forwards
	// or resets the working copy to match. Returns whether the working
	// copy changed.
	FetchAndTrack(ctx context.Context, localPath, branch string) (changed bool, err error)
	// DetachToParent detaches HEAD to HEAD^, used by the retry-on-parse-
	// failure loop in Updater.Update.
	DetachToParent(ctx context.Context, localPath string) error
	// GetInfo reports the current revision, its UTC date, and whether
	// filePath's working-copy content differs from HEAD.
	GetInfo(ctx context.Context, localPath, filePath string, shortID bool) (RevisionInfo, error)
}
