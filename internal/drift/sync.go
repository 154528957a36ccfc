package drift

import (
	"fmt"
	"math"
)

// ComputeSync derives the (local, remote, global) sync percentages for
// one project from its presence flags and ahead/behind commit counts.
//
// The cases, in order:
//  1. Neither side exists: (0, 0, 0).
//  2. Only the local side exists as a git working copy: (100, 0, 50).
//  3. Only the remote side exists: (0, 100, 50).
//  4. Both exist and the histories are identical: (100, 100, 100).
//  5. Both exist and have diverged: each side's score shrinks with its
//     share of the total divergence, and global is the rounded mean.
func ComputeSync(localRepo, remoteExists bool, aheadLocal, aheadRemote int) (localPct, remotePct, globalPct int) {
	switch {
	case !localRepo && !remoteExists:
		return 0, 0, 0
	case localRepo && !remoteExists:
		return 100, 0, 50
	case !localRepo && remoteExists:
		return 0, 100, 50
	}

	total := aheadLocal + aheadRemote
	if total == 0 {
		return 100, 100, 100
	}

	localPct = int(math.Round(100 * (1 - float64(aheadLocal)/float64(total))))
	remotePct = int(math.Round(100 * (1 - float64(aheadRemote)/float64(total))))
	globalPct = int(math.Round(float64(localPct+remotePct) / 2))
	return localPct, remotePct, globalPct
}

// FormatDeltaCommits renders the ahead/behind pair for display.
// Non-comparable projects get the "-" sentinel.
func FormatDeltaCommits(comparable bool, aheadLocal, aheadRemote int) string {
	if !comparable {
		return DeltaNotComparable
	}
	return fmt.Sprintf("%d / %d", aheadLocal, aheadRemote)
}
