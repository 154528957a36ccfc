package git

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/mlabarre/gitdrift/internal/vcs"
)

// upstream returns the tracking ref for the current branch, such as
// "origin/main".
func (g *Git) upstream(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "no upstream configured") {
			return "", vcs.ErrNoUpstream
		}
		if strings.Contains(msg, "does not point to a branch") {
			return "", vcs.ErrDetached
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Divergence measures how far dir's current branch and its upstream
// have drifted apart.
//
// Repos without a tracking branch (or with a detached HEAD) report
// zero divergence rather than an error: the dashboard still shows them,
// it just has nothing to compare. Fetch and count failures likewise
// degrade to zeros so one broken remote cannot stall a refresh pass.
// Only an unexpected failure of the upstream probe itself is returned.
func (g *Git) Divergence(ctx context.Context, dir string) (vcs.DivergenceInfo, error) {
	var info vcs.DivergenceInfo

	up, err := g.upstream(ctx, dir)
	if err != nil {
		if errors.Is(err, vcs.ErrNoUpstream) || errors.Is(err, vcs.ErrDetached) {
			g.log.WithField("dir", dir).Debug("no tracking branch, reporting zero divergence")
			return info, nil
		}
		return info, err
	}

	// A failed fetch leaves the tracking ref stale but still comparable.
	if _, err := g.run(ctx, dir, "fetch", "--all", "--quiet"); err != nil {
		g.log.WithField("dir", dir).WithError(err).Warn("fetch failed, comparing against stale tracking ref")
	}

	if out, err := g.run(ctx, dir, "rev-list", "--left-right", "--count", "HEAD..."+up); err == nil {
		info.AheadLocal, info.AheadRemote = parseLeftRight(out)
	} else {
		g.log.WithField("dir", dir).WithError(err).Warn("rev-list failed, reporting zero divergence")
	}

	if out, err := g.run(ctx, dir, "diff", "--shortstat", "HEAD..."+up); err == nil {
		info.LinesChanged = parseShortstat(out)
	}

	return info, nil
}

// parseLeftRight reads rev-list --left-right --count output, two
// tab-separated totals. Malformed output counts as zero divergence.
func parseLeftRight(out string) (left, right int) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) < 2 {
		return 0, 0
	}
	left, _ = strconv.Atoi(fields[0])
	right, _ = strconv.Atoi(fields[1])
	return left, right
}

var shortstatDigits = regexp.MustCompile(`\d+`)

// parseShortstat sums insertions and deletions from diff --shortstat
// output. The line carries up to three numbers (files, insertions,
// deletions); with only one change kind present git prints two, and
// the last number is the line count.
func parseShortstat(out string) int {
	nums := shortstatDigits.FindAllString(strings.TrimSpace(out), -1)
	switch {
	case len(nums) >= 3:
		ins, _ := strconv.Atoi(nums[len(nums)-2])
		del, _ := strconv.Atoi(nums[len(nums)-1])
		return ins + del
	case len(nums) >= 2:
		n, _ := strconv.Atoi(nums[len(nums)-1])
		return n
	default:
		return 0
	}
}
