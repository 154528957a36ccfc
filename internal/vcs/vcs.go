// Package vcs defines the version-control operations the reconciler
// depends on.
//
// The dashboard never inspects repository internals itself; everything
// it knows about a working copy comes through the Tool interface:
// whether a directory is a repository, how far its history has diverged
// from the upstream tracking branch, and the clone/push/remote
// operations behind the import and export jobs.
//
// internal/vcs/git implements the interface by shelling out to the git
// binary. Tests substitute fakes to inject clone and push failures.
package vcs

import "context"

// Tool runs version-control operations against working copies under a
// common base directory. Implementations must be safe for use from a
// single goroutine at a time per call; the reconciler serializes calls
// within one batch.
type Tool interface {
	// IsRepo reports whether dir is a version-controlled working copy.
	IsRepo(dir string) bool

	// Divergence fetches from the remote and measures how far dir's
	// HEAD and its upstream tracking branch have drifted apart. A
	// missing upstream is not an error: it yields a zero DivergenceInfo.
	Divergence(ctx context.Context, dir string) (DivergenceInfo, error)

	// Clone clones url into target. Cloning over an existing target is
	// skipped silently, mirroring a re-import of a present project.
	Clone(ctx context.Context, url, target string) error

	// Push pushes dir's current branch to the origin remote.
	Push(ctx context.Context, dir string) error

	// EnsureHTTPSRemote rewrites dir's origin remote from an SSH URL to
	// its HTTPS equivalent. A missing origin or an already-HTTPS URL is
	// a no-op.
	EnsureHTTPSRemote(ctx context.Context, dir string) error
}

// DivergenceInfo describes how one working copy relates to its upstream
// tracking branch.
type DivergenceInfo struct {
	// AheadLocal is the number of commits reachable from HEAD but not
	// from the upstream branch.
	AheadLocal int

	// AheadRemote is the number of commits reachable from the upstream
	// branch but not from HEAD.
	AheadRemote int

	// LinesChanged is the total lines differing between HEAD and the
	// upstream branch (insertions plus deletions).
	LinesChanged int
}

// Diverged reports whether both sides carry commits the other lacks.
func (d DivergenceInfo) Diverged() bool {
	return d.AheadLocal > 0 && d.AheadRemote > 0
}
