package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// localDirs lists the immediate subdirectories of base, keyed by name.
//
// A missing base path means nothing has been checked out yet and yields
// an empty map. Any other read failure is returned as an error so the
// caller can abort its pass instead of treating the tree as empty. A
// literal .git entry is never a project.
func localDirs(base string) (map[string]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("scan %s: %w", base, err)
	}

	dirs := make(map[string]string, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == ".git" {
			continue
		}
		dirs[entry.Name()] = filepath.Join(base, entry.Name())
	}
	return dirs, nil
}
