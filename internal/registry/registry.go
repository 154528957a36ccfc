// Package registry owns the shared mutable state of the dashboard: the
// latest reconciled repository statuses and the set of in-flight sync
// jobs.
//
// All mutations go through locked methods on Registry, and readers only
// ever see immutable snapshots. No caller holds a reference into the
// registry's internal maps, which is what makes the refresh loop, the
// render loop and job goroutines safe to run concurrently.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mlabarre/gitdrift/internal/drift"
)

// ErrJobActive is returned by BeginJob when the project already has a
// running job. Concurrent import+export of the same project is a real
// race, so new jobs are rejected instead of overwriting the record.
var ErrJobActive = errors.New("project already has an active job")

// Registry is the single owner of per-repo statuses and job records.
// The zero value is not usable; call New.
type Registry struct {
	mu sync.Mutex

	// repos and jobs are keyed by project name.
	repos map[string]drift.RepoStatus
	jobs  map[string]drift.SyncJob

	// lastUpdate is bumped on every mutation.
	lastUpdate time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		repos: make(map[string]drift.RepoStatus),
		jobs:  make(map[string]drift.SyncJob),
		now:   time.Now,
	}
}

// ReplaceAll atomically swaps the entire repo-status set. A concurrent
// Snapshot sees either the previous set or the new one, never a mix.
func (r *Registry) ReplaceAll(statuses []drift.RepoStatus) {
	next := make(map[string]drift.RepoStatus, len(statuses))
	for _, s := range statuses {
		next[s.Name] = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos = next
	r.lastUpdate = r.now()
}

// BeginJob inserts a running job record at progress 0 for the project.
// It fails with ErrJobActive when a running job already exists for the
// same name; terminal records (done/error awaiting their grace-period
// clear) are overwritten.
func (r *Registry) BeginJob(name string, mode drift.JobMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[name]; ok && job.Status == drift.StatusRunning {
		return ErrJobActive
	}

	r.jobs[name] = drift.SyncJob{
		Name:      name,
		Mode:      mode,
		Progress:  0,
		Status:    drift.StatusRunning,
		StartedAt: r.now(),
	}
	r.lastUpdate = r.now()
	return nil
}

// SetJob updates the job record for the project, keeping the original
// start time when one exists. Progress checkpoints and terminal states
// both arrive through here.
func (r *Registry) SetJob(name string, mode drift.JobMode, progress float64, status drift.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	startedAt := r.now()
	if prev, ok := r.jobs[name]; ok {
		startedAt = prev.StartedAt
	}

	r.jobs[name] = drift.SyncJob{
		Name:      name,
		Mode:      mode,
		Progress:  progress,
		Status:    status,
		StartedAt: startedAt,
	}
	r.lastUpdate = r.now()
}

// ClearJob removes the job record for the project. Clearing an absent
// job is a no-op.
func (r *Registry) ClearJob(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[name]; !ok {
		return
	}
	delete(r.jobs, name)
	r.lastUpdate = r.now()
}

// Snapshot returns a deep copy of the current state, with repos and
// jobs sorted by name. The copy shares nothing with the registry, so
// callers may read it without holding any lock.
func (r *Registry) Snapshot() drift.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := drift.Snapshot{
		Repos:      make([]drift.RepoStatus, 0, len(r.repos)),
		Jobs:       make([]drift.SyncJob, 0, len(r.jobs)),
		LastUpdate: r.lastUpdate,
	}
	for _, s := range r.repos {
		snap.Repos = append(snap.Repos, s)
	}
	for _, j := range r.jobs {
		snap.Jobs = append(snap.Jobs, j)
	}

	sort.Slice(snap.Repos, func(i, j int) bool { return snap.Repos[i].Name < snap.Repos[j].Name })
	sort.Slice(snap.Jobs, func(i, j int) bool { return snap.Jobs[i].Name < snap.Jobs[j].Name })
	return snap
}
