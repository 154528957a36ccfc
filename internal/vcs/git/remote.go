package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mlabarre/gitdrift/internal/vcs"
)

const sshOriginPrefix = "git@github.com:"

// Clone clones url into target. An existing target means the project
// is already present locally, so the clone is skipped rather than
// failed; a re-import must never clobber a working copy.
func (g *Git) Clone(ctx context.Context, url, target string) error {
	if _, err := os.Stat(target); err == nil {
		g.log.WithField("target", target).Info("clone skipped, target already present")
		return nil
	}

	g.log.WithFields(logrus.Fields{
		"url":    url,
		"target": target,
	}).Info("cloning")

	if _, err := g.run(ctx, filepath.Dir(target), "clone", url, target); err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

// CurrentBranch returns the name of the branch checked out in dir.
func (g *Git) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out)
	// rev-parse prints the literal "HEAD" when detached.
	if branch == "" || branch == "HEAD" {
		return "", vcs.ErrDetached
	}
	return branch, nil
}

// Push pushes dir's current branch to the origin remote.
func (g *Git) Push(ctx context.Context, dir string) error {
	branch, err := g.CurrentBranch(ctx, dir)
	if err != nil {
		return err
	}

	g.log.WithFields(logrus.Fields{
		"dir":    dir,
		"branch": branch,
	}).Info("pushing")

	out, err := g.run(ctx, dir, "push", "origin", branch)
	if err != nil {
		if strings.Contains(out, "rejected") || strings.Contains(out, "non-fast-forward") {
			return fmt.Errorf("push %s: %w", branch, vcs.ErrPushRejected)
		}
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}

// EnsureHTTPSRemote rewrites an SSH origin URL (git@github.com:...) to
// its HTTPS form so clone credentials work for push without an SSH
// agent. Missing origin, unreadable URL, or an already-HTTPS URL leave
// the repository untouched.
func (g *Git) EnsureHTTPSRemote(ctx context.Context, dir string) error {
	remotes, err := g.run(ctx, dir, "remote")
	if err != nil || !slices.Contains(strings.Fields(remotes), "origin") {
		return nil
	}

	url, err := g.run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return nil
	}

	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, sshOriginPrefix) {
		return nil
	}

	https := "https://github.com/" + strings.TrimPrefix(url, sshOriginPrefix)
	g.log.WithFields(logrus.Fields{
		"dir": dir,
		"url": https,
	}).Info("rewriting origin remote to https")

	if _, err := g.run(ctx, dir, "remote", "set-url", "origin", https); err != nil {
		return fmt.Errorf("rewrite origin remote: %w", err)
	}
	return nil
}
