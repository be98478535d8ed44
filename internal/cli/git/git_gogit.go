//go:build gogit

package git

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	libgit "github.com/CartoonFan/libloot/pkg/sorter/git"
)

// GoGitClient implements libgit.Repository using go-git, avoiding a
// dependency on the system git binary.
type GoGitClient struct {
	logger *slog.Logger
}

// New returns a libgit.Repository backed by go-git.
func New(loggerHandler slog.Handler) libgit.Repository {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "masterlistGit"), slog.String("backend", "go-git"))
	logger.Debug("using go-git backend for masterlist updates")
	return &GoGitClient{logger: logger}
}

func (c *GoGitClient) EnsureClone(ctx context.Context, localPath, remoteURL string) error {
	if _, err := gogit.PlainOpenWithOptions(localPath, &gogit.PlainOpenOptions{DetectDotGit: true}); err == nil {
		return nil
	} else if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return libgit.Errorf("opening masterlist repository at %q: %w", localPath, err)
	}

	if remoteURL == "" {
		return libgit.Errorf("masterlist repository does not exist at %q and no remote URL was given", localPath)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return libgit.Errorf("creating masterlist repository parent directory: %w", err)
	}
	_, err := gogit.PlainCloneContext(ctx, localPath, false, &gogit.CloneOptions{URL: remoteURL})
	if err != nil {
		return libgit.Errorf("cloning masterlist repository from %q: %w", remoteURL, err)
	}
	return nil
}

func (c *GoGitClient) FetchAndTrack(ctx context.Context, localPath, branch string) (bool, error) {
	repo, err := gogit.PlainOpenWithOptions(localPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return false, libgit.Errorf("opening masterlist repository at %q: %w", localPath, err)
	}

	beforeHead, _ := repo.Head()

	err = repo.FetchContext(ctx, &gogit.FetchOptions{RemoteName: "origin", Force: true})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return false, libgit.Errorf("fetching origin for masterlist repository: %w", err)
	}

	remoteRef := plumbing.NewRemoteReferenceName("origin", branch)
	remoteCommit, err := repo.ResolveRevision(plumbing.Revision(remoteRef))
	if err != nil {
		return false, libgit.Errorf("resolving origin/%s: %w", branch, err)
	}

	localRefName := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(localRefName, true); err != nil {
		ref := plumbing.NewHashReference(localRefName, *remoteCommit)
		if err := repo.Storer.SetReference(ref); err != nil {
			return false, libgit.Errorf("creating local branch %q: %w", branch, err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, localRefName)); err != nil {
			return false, libgit.Errorf("switching HEAD to %q: %w", branch, err)
		}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, libgit.Errorf("getting masterlist worktree: %w", err)
	}
	if err := worktree.Reset(&gogit.ResetOptions{Commit: *remoteCommit, Mode: gogit.MergeReset}); err != nil {
		return false, libgit.Errorf("resetting masterlist worktree to origin/%s: %w", branch, err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(localRefName, *remoteCommit)); err != nil {
		return false, libgit.Errorf("updating local branch %q to origin tip: %w", branch, err)
	}

	changed := beforeHead == nil || beforeHead.Hash() != *remoteCommit
	return changed, nil
}

func (c *GoGitClient) DetachToParent(ctx context.Context, localPath string) error {
	repo, err := gogit.PlainOpenWithOptions(localPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return libgit.Errorf("opening masterlist repository at %q: %w", localPath, err)
	}
	head, err := repo.Head()
	if err != nil {
		return libgit.Errorf("getting masterlist HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return libgit.Errorf("reading masterlist HEAD commit: %w", err)
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return libgit.Errorf("masterlist HEAD commit has no parent to detach to: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, parent.Hash)); err != nil {
		return libgit.Errorf("detaching masterlist HEAD to parent: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return libgit.Errorf("getting masterlist worktree: %w", err)
	}
	if err := worktree.Reset(&gogit.ResetOptions{Commit: parent.Hash, Mode: gogit.HardReset}); err != nil {
		return libgit.Errorf("resetting masterlist worktree to parent commit: %w", err)
	}
	return nil
}

func (c *GoGitClient) GetInfo(ctx context.Context, localPath, filePath string, shortID bool) (libgit.RevisionInfo, error) {
	repo, err := gogit.PlainOpenWithOptions(localPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return libgit.RevisionInfo{}, libgit.Errorf("opening masterlist repository at %q: %w", localPath, err)
	}
	head, err := repo.Head()
	if err != nil {
		return libgit.RevisionInfo{}, libgit.Errorf("getting masterlist HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return libgit.RevisionInfo{}, libgit.Errorf("reading masterlist HEAD commit: %w", err)
	}

	id := head.Hash().String()
	if shortID {
		id = id[:7]
	}

	modified := false
	if filePath != "" {
		if _, err := os.Stat(filepath.Join(localPath, filePath)); err == nil {
			worktree, err := repo.Worktree()
			if err == nil {
				status, err := worktree.Status()
				if err == nil {
					st := status.File(filePath)
					modified = st.Worktree != gogit.Unmodified || st.Staging != gogit.Unmodified
				}
			}
		} else {
			return libgit.RevisionInfo{}, libgit.Errorf("masterlist file %q not found: %w", filePath, err)
		}
	}

	return libgit.RevisionInfo{
		RevisionID: id,
		Date:       commit.Author.When.UTC().Format("2006-01-02"),
		IsModified: modified,
	}, nil
}
