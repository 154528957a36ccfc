package reconcile

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlabarre/gitdrift/internal/drift"
	"github.com/mlabarre/gitdrift/internal/github"
	"github.com/mlabarre/gitdrift/internal/registry"
	"github.com/mlabarre/gitdrift/internal/vcs"
)

// Default pause lengths. Jobs advance through checkpoints faster than a
// human can read, so transitions are slowed just enough to be visible
// and terminal states linger before the record is cleared.
const (
	DefaultGrace       = 500 * time.Millisecond
	DefaultStepPause   = 100 * time.Millisecond
	DefaultSettlePause = 200 * time.Millisecond
)

// Lister returns the projects a GitHub account hosts.
type Lister interface {
	List(ctx context.Context, user string) ([]github.RemoteRepo, error)
}

// Service reconciles local working copies against hosted projects.
// One Service is shared by the refresh loop and job goroutines; the
// registry serializes all state they touch.
type Service struct {
	reg    *registry.Registry
	tool   vcs.Tool
	lister Lister
	log    *logrus.Logger

	// Grace holds a finished or failed job record on screen before it
	// is cleared; StepPause and SettlePause slow checkpoint transitions
	// enough to be visible. Tests zero all three.
	Grace       time.Duration
	StepPause   time.Duration
	SettlePause time.Duration

	mu       sync.Mutex
	basePath string
	user     string
}

// New creates a reconciliation service. A nil logger discards output.
func New(reg *registry.Registry, tool vcs.Tool, lister Lister, basePath, user string, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Service{
		reg:         reg,
		tool:        tool,
		lister:      lister,
		log:         log,
		Grace:       DefaultGrace,
		StepPause:   DefaultStepPause,
		SettlePause: DefaultSettlePause,
		basePath:    basePath,
		user:        user,
	}
}

// Retarget points the service at a new base path and account, taking
// effect on the next refresh or batch.
func (s *Service) Retarget(basePath, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basePath = basePath
	s.user = user
}

func (s *Service) target() (basePath, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basePath, s.user
}

// Refresh rebuilds the registry's repo statuses: the sorted union of
// local directories and hosted projects, divergence probed wherever
// both sides exist as comparable repositories.
//
// A failed listing or scan aborts the pass before any mutation, so the
// registry keeps its previous statuses; stale data beats a wiped table.
// Per-repo probe failures only zero that repo's counts.
func (s *Service) Refresh(ctx context.Context) error {
	base, user := s.target()

	remote, err := s.lister.List(ctx, user)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	dirs, err := localDirs(base)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	remoteByName := make(map[string]github.RemoteRepo, len(remote))
	for _, r := range remote {
		remoteByName[r.Name] = r
	}

	names := make([]string, 0, len(dirs)+len(remoteByName))
	for name := range dirs {
		names = append(names, name)
	}
	for name := range remoteByName {
		if _, ok := dirs[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	statuses := make([]drift.RepoStatus, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		statuses = append(statuses, s.probe(ctx, name, dirs, remoteByName))
	}

	s.reg.ReplaceAll(statuses)
	s.log.WithField("repos", len(statuses)).Info("refresh complete")
	return nil
}

// probe builds the status row for one project name.
func (s *Service) probe(ctx context.Context, name string, dirs map[string]string, remote map[string]github.RemoteRepo) drift.RepoStatus {
	path, hasDir := dirs[name]
	isRepo := hasDir && s.tool.IsRepo(path)
	_, remoteExists := remote[name]

	var div vcs.DivergenceInfo
	comparable := isRepo && remoteExists
	if comparable {
		// Fetch and push must share a transport, so the origin URL is
		// normalized before the first fetch touches it.
		if err := s.tool.EnsureHTTPSRemote(ctx, path); err != nil {
			s.log.WithField("repo", name).WithError(err).Warn("origin rewrite failed")
		}
		d, err := s.tool.Divergence(ctx, path)
		if err != nil {
			s.log.WithField("repo", name).WithError(err).Warn("divergence probe failed")
		} else {
			div = d
		}
	}

	localPct, remotePct, globalPct := drift.ComputeSync(isRepo, remoteExists, div.AheadLocal, div.AheadRemote)

	status := drift.RepoStatus{
		Name:         name,
		LocalPct:     localPct,
		RemotePct:    remotePct,
		GlobalPct:    globalPct,
		DeltaCommits: drift.FormatDeltaCommits(comparable, div.AheadLocal, div.AheadRemote),
	}
	if comparable {
		status.DeltaLines = div.LinesChanged
	}
	return status
}

// ImportMissing clones every hosted project that has no local
// directory yet, in listing order. A non-empty target restricts the
// batch to that one project. Per-project failures mark the job record
// and move on; the batch always ends with a refresh.
func (s *Service) ImportMissing(ctx context.Context, target string) error {
	base, user := s.target()

	remote, err := s.lister.List(ctx, user)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	dirs, err := localDirs(base)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"target": target,
		"remote": len(remote),
	}).Info("import batch started")

	for _, repo := range remote {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if target != "" && repo.Name != target {
			continue
		}
		if _, exists := dirs[repo.Name]; exists {
			continue
		}
		s.runImport(ctx, base, user, repo.Name)
	}

	return s.Refresh(ctx)
}

// runImport walks one project through the import checkpoints: begin at
// 0.0, preparing at 0.2, clone, finishing at 0.8, then the terminal
// record at 1.0.
func (s *Service) runImport(ctx context.Context, base, user, name string) {
	if err := s.reg.BeginJob(name, drift.ModeImport); err != nil {
		s.log.WithField("repo", name).Warn("import skipped: job already active")
		return
	}

	s.pause(ctx, s.StepPause)
	s.reg.SetJob(name, drift.ModeImport, 0.2, drift.StatusRunning)

	url := fmt.Sprintf("https://github.com/%s/%s.git", user, name)
	if err := s.tool.Clone(ctx, url, filepath.Join(base, name)); err != nil {
		s.log.WithField("repo", name).WithError(err).Error("clone failed")
		s.finishJob(ctx, name, drift.ModeImport, drift.StatusError)
		return
	}

	s.reg.SetJob(name, drift.ModeImport, 0.8, drift.StatusRunning)
	s.pause(ctx, s.SettlePause)
	s.finishJob(ctx, name, drift.ModeImport, drift.StatusDone)
	s.log.WithField("repo", name).Info("import complete")
}

// ExportLocal pushes every local git working copy to its origin
// remote, in name order. A non-empty target restricts the batch to
// that one project. Push failures mark the job record and move on; the
// batch always ends with a refresh.
func (s *Service) ExportLocal(ctx context.Context, target string) error {
	base, _ := s.target()

	dirs, err := localDirs(base)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	names := make([]string, 0, len(dirs))
	for name := range dirs {
		names = append(names, name)
	}
	sort.Strings(names)

	s.log.WithFields(logrus.Fields{
		"target": target,
		"dirs":   len(names),
	}).Info("export batch started")

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if target != "" && name != target {
			continue
		}
		if !s.tool.IsRepo(dirs[name]) {
			continue
		}
		s.runExport(ctx, name, dirs[name])
	}

	return s.Refresh(ctx)
}

// runExport walks one project through the export checkpoints: begin at
// 0.0, preparing at 0.3, push, then the terminal record at 1.0.
func (s *Service) runExport(ctx context.Context, name, path string) {
	if err := s.reg.BeginJob(name, drift.ModeExport); err != nil {
		s.log.WithField("repo", name).Warn("export skipped: job already active")
		return
	}

	s.pause(ctx, s.StepPause)
	s.reg.SetJob(name, drift.ModeExport, 0.3, drift.StatusRunning)

	if err := s.tool.EnsureHTTPSRemote(ctx, path); err != nil {
		s.log.WithField("repo", name).WithError(err).Warn("origin rewrite failed")
	}
	if err := s.tool.Push(ctx, path); err != nil {
		s.log.WithField("repo", name).WithError(err).Error("push failed")
		s.finishJob(ctx, name, drift.ModeExport, drift.StatusError)
		return
	}

	s.finishJob(ctx, name, drift.ModeExport, drift.StatusDone)
	s.log.WithField("repo", name).Info("export complete")
}

// finishJob records the terminal status at full progress, holds it for
// the grace period, then clears the record.
func (s *Service) finishJob(ctx context.Context, name string, mode drift.JobMode, status drift.JobStatus) {
	s.reg.SetJob(name, mode, 1.0, status)
	s.pause(ctx, s.Grace)
	s.reg.ClearJob(name)
}

// pause is a context-aware sleep. Zero and negative durations return
// immediately so tests can run the checkpoint sequences flat out.
func (s *Service) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
