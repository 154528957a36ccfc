package drift

import "time"

// JobMode identifies the direction of a bulk sync operation.
type JobMode string

const (
	// ModeImport clones projects that exist remotely but not locally.
	ModeImport JobMode = "import"

	// ModeExport pushes local projects to their hosted remote.
	ModeExport JobMode = "export"
)

// JobStatus is the lifecycle state of a SyncJob.
type JobStatus string

const (
	// StatusRunning means the job is in progress.
	StatusRunning JobStatus = "running"

	// StatusDone means the job finished successfully. The record stays
	// visible for a short grace period before it is cleared.
	StatusDone JobStatus = "done"

	// StatusError means the job failed. Like done, the record lingers
	// briefly so the failure is visible before being cleared.
	StatusError JobStatus = "error"
)

// DeltaNotComparable is the DeltaCommits sentinel used when the two
// sides cannot be compared (one of them is missing).
const DeltaNotComparable = "-"

// RepoStatus is the reconciled state of one project, keyed by name.
// The name is case-sensitive and matches both the local directory name
// and the hosted project name.
//
// The whole set is replaced atomically on every refresh cycle; a
// RepoStatus is never mutated in place.
type RepoStatus struct {
	// Name is the project name (unique key).
	Name string `json:"name" yaml:"name"`

	// LocalPct, RemotePct and GlobalPct are 0-100 sync scores.
	// GlobalPct is always the rounded mean of the other two.
	LocalPct  int `json:"local_pct" yaml:"local_pct"`
	RemotePct int `json:"remote_pct" yaml:"remote_pct"`
	GlobalPct int `json:"global_pct" yaml:"global_pct"`

	// DeltaCommits is "aheadLocal / aheadRemote", or "-" when the two
	// sides are not comparable.
	DeltaCommits string `json:"delta_commits" yaml:"delta_commits"`

	// DeltaLines is the number of lines differing between HEAD and the
	// upstream branch, 0 when not comparable.
	DeltaLines int `json:"delta_lines" yaml:"delta_lines"`
}

// SyncJob tracks one in-flight import or export operation.
// At most one job exists per project name at a time.
type SyncJob struct {
	// Name is the project the job operates on.
	Name string `json:"name" yaml:"name"`

	// Mode is import or export.
	Mode JobMode `json:"mode" yaml:"mode"`

	// Progress is 0.0-1.0, advancing through fixed checkpoints.
	Progress float64 `json:"progress" yaml:"progress"`

	// Status is running, done or error.
	Status JobStatus `json:"status" yaml:"status"`

	// StartedAt is when the job record was created.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// Snapshot is an immutable point-in-time copy of the registry state.
// It shares no mutable memory with the registry, so readers need no
// further synchronization.
type Snapshot struct {
	// Repos holds the reconciled statuses, sorted by name.
	Repos []RepoStatus `json:"repos" yaml:"repos"`

	// Jobs holds the active jobs, sorted by name.
	Jobs []SyncJob `json:"jobs" yaml:"jobs"`

	// LastUpdate is the registry timestamp at capture time, bumped on
	// every registry mutation.
	LastUpdate time.Time `json:"last_update" yaml:"last_update"`
}

// Summary counts the snapshot's repos by where they exist. A repo is
// counted on both sides when its histories were comparable this cycle.
type Summary struct {
	Local  int `json:"local" yaml:"local"`
	Remote int `json:"remote" yaml:"remote"`
	Both   int `json:"both" yaml:"both"`
}

// Summarize derives presence counts from a snapshot.
func (s Snapshot) Summarize() Summary {
	var sum Summary
	for _, r := range s.Repos {
		comparable := r.DeltaCommits != DeltaNotComparable
		if comparable {
			sum.Both++
		}
		if comparable || (r.LocalPct == 100 && r.RemotePct == 0) {
			sum.Local++
		}
		if comparable || (r.RemotePct == 100 && r.LocalPct == 0) {
			sum.Remote++
		}
	}
	return sum
}
