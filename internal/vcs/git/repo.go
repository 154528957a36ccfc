package git

import (
	"os"
	"path/filepath"
)

// IsRepo reports whether dir is the root of a git working copy.
//
// It checks for a .git entry rather than invoking the binary so that
// scanning a base path with hundreds of directories stays cheap. A
// .git file (as written by git worktree) counts the same as a
// directory.
func (g *Git) IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
