//go:build !gogit

package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	libgit "github.com/CartoonFan/libloot/pkg/sorter/git"
)

// ExecClient implements libgit.Repository by shelling out to the system
// git binary, the default backend.
type ExecClient struct {
	logger *slog.Logger
}

// New returns a libgit.Repository backed by os/exec.
func New(loggerHandler slog.Handler) libgit.Repository {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "masterlistGit"), slog.String("backend", "exec"))
	logger.Debug("using exec backend for masterlist updates")
	return &ExecClient{logger: logger}
}

func (c *ExecClient) run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()
	out, errOut := strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String())
	if err != nil {
		return out, errOut, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, errOut)
	}
	return out, errOut, nil
}

func (c *ExecClient) EnsureClone(ctx context.Context, localPath, remoteURL string) error {
	if info, err := os.Stat(filepath.Join(localPath, ".git")); err == nil && info.IsDir() {
		return nil
	}
	if remoteURL == "" {
		return libgit.Errorf("masterlist repository does not exist at %q and no remote URL was given", localPath)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return libgit.Errorf("creating masterlist repository parent directory: %w", err)
	}
	if _, stderr, err := c.run(ctx, filepath.Dir(localPath), "clone", remoteURL, localPath); err != nil {
		return libgit.Errorf("cloning masterlist repository from %q: %w (%s)", remoteURL, err, stderr)
	}
	return nil
}

func (c *ExecClient) FetchAndTrack(ctx context.Context, localPath, branch string) (bool, error) {
	beforeHead, _, _ := c.run(ctx, localPath, "rev-parse", "HEAD")

	if _, stderr, err := c.run(ctx, localPath, "fetch", "origin", branch); err != nil {
		return false, libgit.Errorf("fetching origin/%s: %w (%s)", branch, err, stderr)
	}

	if _, _, err := c.run(ctx, localPath, "rev-parse", "--verify", "refs/heads/"+branch); err != nil {
		if _, stderr, err := c.run(ctx, localPath, "checkout", "-B", branch, "origin/"+branch); err != nil {
			return false, libgit.Errorf("creating local branch %q tracking origin: %w (%s)", branch, err, stderr)
		}
	} else if _, stderr, err := c.run(ctx, localPath, "checkout", branch); err != nil {
		return false, libgit.Errorf("checking out branch %q: %w (%s)", branch, err, stderr)
	}

	if _, stderr, err := c.run(ctx, localPath, "reset", "--hard", "origin/"+branch); err != nil {
		return false, libgit.Errorf("resetting %q to origin tip: %w (%s)", branch, err, stderr)
	}

	afterHead, _, _ := c.run(ctx, localPath, "rev-parse", "HEAD")
	return beforeHead != afterHead, nil
}

func (c *ExecClient) DetachToParent(ctx context.Context, localPath string) error {
	if _, stderr, err := c.run(ctx, localPath, "checkout", "HEAD^"); err != nil {
		return libgit.Errorf("detaching masterlist HEAD to parent: %w (%s)", err, stderr)
	}
	return nil
}

func (c *ExecClient) GetInfo(ctx context.Context, localPath, filePath string, shortID bool) (libgit.RevisionInfo, error) {
	if _, err := os.Stat(filepath.Join(localPath, ".git")); err != nil {
		return libgit.RevisionInfo{}, libgit.Errorf("no masterlist repository at %q: %w", localPath, err)
	}

	idFlag := "HEAD"
	if shortID {
		idFlag = "--short"
	}
	var id string
	var err error
	if shortID {
		id, _, err = c.run(ctx, localPath, "rev-parse", idFlag, "HEAD")
	} else {
		id, _, err = c.run(ctx, localPath, "rev-parse", idFlag)
	}
	if err != nil {
		return libgit.RevisionInfo{}, libgit.Errorf("resolving masterlist revision: %w", err)
	}

	stamp, _, err := c.run(ctx, localPath, "log", "-1", "--format=%ct")
	if err != nil {
		return libgit.RevisionInfo{}, libgit.Errorf("resolving masterlist revision date: %w", err)
	}
	secs, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return libgit.RevisionInfo{}, libgit.Errorf("parsing masterlist revision date %q: %w", stamp, err)
	}
	date := time.Unix(secs, 0).UTC().Format("2006-01-02")

	modified := false
	if filePath != "" {
		if _, err := os.Stat(filepath.Join(localPath, filePath)); err != nil {
			return libgit.RevisionInfo{}, libgit.Errorf("masterlist file %q not found: %w", filePath, err)
		}
		status, _, err := c.run(ctx, localPath, "status", "--porcelain", "--", filePath)
		if err != nil {
			return libgit.RevisionInfo{}, libgit.Errorf("checking masterlist file status: %w", err)
		}
		modified = status != ""
	}

	return libgit.RevisionInfo{RevisionID: id, Date: date, IsModified: modified}, nil
}
