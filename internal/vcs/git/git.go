// Package git implements the vcs.Tool interface by shelling out to the
// git binary.
//
// Every working copy lives in its own directory under the dashboard's
// base path, so each operation takes the target directory explicitly
// instead of binding a runner to a single repository. Command
// transcripts go to an injected logger (the runtime keeps them in a
// dedicated git log file).
package git

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Git runs git commands against working copies.
type Git struct {
	log *logrus.Logger
}

// New creates a Git runner. A nil logger discards command transcripts.
func New(log *logrus.Logger) *Git {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Git{log: log}
}

// run executes git with the given arguments in dir and returns the
// combined output. Failures carry the command line and trimmed output
// so job errors stay diagnosable from the log alone.
func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(output))

	g.log.WithFields(logrus.Fields{
		"dir": dir,
		"cmd": "git " + strings.Join(args, " "),
	}).Debug(firstLine(out))

	if err != nil {
		return out, fmt.Errorf("git %s failed: %w\n%s",
			strings.Join(args, " "), err, out)
	}
	return out, nil
}

// firstLine trims output to its first line for compact log records.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
