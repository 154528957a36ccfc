package drift

import "testing"

func TestComputeSyncPresence(t *testing.T) {
	tests := []struct {
		name        string
		localRepo   bool
		remote      bool
		aheadLocal  int
		aheadRemote int
		wantLocal   int
		wantRemote  int
		wantGlobal  int
	}{
		{"neither side", false, false, 0, 0, 0, 0, 0},
		{"neither side ignores counts", false, false, 7, 3, 0, 0, 0},
		{"local only", true, false, 0, 0, 100, 0, 50},
		{"local only ignores counts", true, false, 12, 4, 100, 0, 50},
		{"remote only", false, true, 0, 0, 0, 100, 50},
		{"remote only ignores counts", false, true, 9, 1, 0, 100, 50},
		{"identical histories", true, true, 0, 0, 100, 100, 100},
		{"even divergence", true, true, 2, 2, 50, 50, 50},
		{"local ahead only", true, true, 5, 0, 0, 100, 50},
		{"remote ahead only", true, true, 0, 5, 100, 0, 50},
		{"uneven divergence", true, true, 1, 3, 75, 25, 50},
		{"rounded thirds", true, true, 1, 2, 67, 33, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, remote, global := ComputeSync(tt.localRepo, tt.remote, tt.aheadLocal, tt.aheadRemote)
			if local != tt.wantLocal || remote != tt.wantRemote || global != tt.wantGlobal {
				t.Errorf("ComputeSync(%v, %v, %d, %d) = (%d, %d, %d), want (%d, %d, %d)",
					tt.localRepo, tt.remote, tt.aheadLocal, tt.aheadRemote,
					local, remote, global, tt.wantLocal, tt.wantRemote, tt.wantGlobal)
			}
		})
	}
}

// The global score must stay the rounded mean of the two sides, and all
// three must stay within 0-100, for any ahead/behind combination.
func TestComputeSyncBounds(t *testing.T) {
	for aheadLocal := 0; aheadLocal <= 25; aheadLocal++ {
		for aheadRemote := 0; aheadRemote <= 25; aheadRemote++ {
			local, remote, global := ComputeSync(true, true, aheadLocal, aheadRemote)

			for _, pct := range []int{local, remote, global} {
				if pct < 0 || pct > 100 {
					t.Fatalf("ComputeSync(true, true, %d, %d) produced out-of-range pct %d",
						aheadLocal, aheadRemote, pct)
				}
			}

			sum := local + remote
			wantGlobal := sum / 2
			if sum%2 == 1 {
				wantGlobal = (sum + 1) / 2
			}
			if global != wantGlobal {
				t.Errorf("ComputeSync(true, true, %d, %d) global = %d, want rounded mean %d",
					aheadLocal, aheadRemote, global, wantGlobal)
			}
		}
	}
}

func TestFormatDeltaCommits(t *testing.T) {
	if got := FormatDeltaCommits(true, 2, 2); got != "2 / 2" {
		t.Errorf("FormatDeltaCommits(true, 2, 2) = %q, want %q", got, "2 / 2")
	}
	if got := FormatDeltaCommits(true, 0, 13); got != "0 / 13" {
		t.Errorf("FormatDeltaCommits(true, 0, 13) = %q, want %q", got, "0 / 13")
	}
	if got := FormatDeltaCommits(false, 2, 2); got != DeltaNotComparable {
		t.Errorf("FormatDeltaCommits(false, 2, 2) = %q, want %q", got, DeltaNotComparable)
	}
}

func TestSummarize(t *testing.T) {
	snap := Snapshot{
		Repos: []RepoStatus{
			{Name: "alpha", LocalPct: 100, RemotePct: 0, GlobalPct: 50, DeltaCommits: DeltaNotComparable},
			{Name: "beta", LocalPct: 0, RemotePct: 100, GlobalPct: 50, DeltaCommits: DeltaNotComparable},
			{Name: "gamma", LocalPct: 50, RemotePct: 50, GlobalPct: 50, DeltaCommits: "2 / 2"},
			{Name: "plain-dir", LocalPct: 0, RemotePct: 0, GlobalPct: 0, DeltaCommits: DeltaNotComparable},
		},
	}

	sum := snap.Summarize()
	if sum.Local != 2 {
		t.Errorf("Summarize().Local = %d, want 2", sum.Local)
	}
	if sum.Remote != 2 {
		t.Errorf("Summarize().Remote = %d, want 2", sum.Remote)
	}
	if sum.Both != 1 {
		t.Errorf("Summarize().Both = %d, want 1", sum.Both)
	}
}
