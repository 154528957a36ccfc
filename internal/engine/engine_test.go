package engine

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlabarre/gitdrift/internal/config"
	"github.com/mlabarre/gitdrift/internal/drift"
	"github.com/mlabarre/gitdrift/internal/logging"
	"github.com/mlabarre/gitdrift/internal/registry"
)

// fakeSyncer records calls and feeds the registry so broadcasts and
// frames have data to show.
type fakeSyncer struct {
	mu        sync.Mutex
	refreshes int
	imports   []string
	exports   []string
	retargets [][2]string

	reg *registry.Registry
}

func (f *fakeSyncer) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
	if f.reg != nil {
		f.reg.ReplaceAll([]drift.RepoStatus{
			{Name: "alpha", LocalPct: 100, RemotePct: 100, GlobalPct: 100, DeltaCommits: "0 / 0"},
		})
	}
	return nil
}

func (f *fakeSyncer) ImportMissing(ctx context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, target)
	return nil
}

func (f *fakeSyncer) ExportLocal(ctx context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, target)
	return nil
}

func (f *fakeSyncer) Retarget(basePath, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retargets = append(f.retargets, [2]string{basePath, user})
}

func (f *fakeSyncer) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeSyncer) importCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.imports)
}

func (f *fakeSyncer) exportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exports)
}

func (f *fakeSyncer) retargetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retargets)
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	snaps []drift.Snapshot
}

func (b *fakeBroadcaster) Broadcast(snap drift.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps = append(b.snaps, snap)
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snaps)
}

// syncBuffer lets the test read frames while the render loop writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	eng  *Engine
	sync *fakeSyncer
	out  *syncBuffer
	keys *io.PipeWriter
	done chan error
	logs *logging.Set
	cfg  config.Config
}

func startEngine(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	reg := registry.New()
	fs := &fakeSyncer{reg: reg}
	out := &syncBuffer{}
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	logs := logging.Discard()
	cfg := config.Config{
		BasePath:        t.TempDir(),
		GithubUser:      "octocat",
		RefreshInterval: time.Hour, // tests opt in to short intervals
	}

	opts := Options{
		Config:     cfg,
		Logs:       logs,
		Registry:   reg,
		Syncer:     fs,
		Input:      pr,
		Output:     out,
		RenderTick: 10 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}

	eng, err := New(opts)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background()) }()

	return &fixture{eng: eng, sync: fs, out: out, keys: pw, done: done, logs: logs, cfg: opts.Config}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (f *fixture) quit(t *testing.T) {
	t.Helper()
	_, _ = f.keys.Write([]byte("q"))
	select {
	case err := <-f.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after quit")
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Logs: logging.Discard(), Registry: registry.New()})
	assert.Error(t, err, "missing syncer must be rejected")
}

func TestRun_RefreshesOnStartAndRendersFrames(t *testing.T) {
	f := startEngine(t, nil)

	waitFor(t, "initial refresh", func() bool { return f.sync.refreshCount() >= 1 })
	waitFor(t, "a rendered frame", func() bool {
		return strings.Contains(f.out.String(), "GITDRIFT")
	})
	waitFor(t, "the repo row", func() bool {
		return strings.Contains(f.out.String(), "alpha")
	})

	f.quit(t)
}

func TestRun_PeriodicRefresh(t *testing.T) {
	f := startEngine(t, func(o *Options) {
		o.Config.RefreshInterval = 20 * time.Millisecond
	})

	waitFor(t, "several refresh cycles", func() bool { return f.sync.refreshCount() >= 3 })
	f.quit(t)
}

func TestRun_ImportAndExportCommands(t *testing.T) {
	f := startEngine(t, nil)
	waitFor(t, "initial refresh", func() bool { return f.sync.refreshCount() >= 1 })

	_, err := f.keys.Write([]byte("2"))
	require.NoError(t, err)
	waitFor(t, "import batch", func() bool { return f.sync.importCount() == 1 })

	_, err = f.keys.Write([]byte("3"))
	require.NoError(t, err)
	waitFor(t, "export batch", func() bool { return f.sync.exportCount() == 1 })

	f.sync.mu.Lock()
	assert.Equal(t, []string{""}, f.sync.imports, "import runs unfiltered")
	assert.Equal(t, []string{""}, f.sync.exports, "export runs unfiltered")
	f.sync.mu.Unlock()

	f.quit(t)
}

func TestRun_ParentContextCancelStops(t *testing.T) {
	reg := registry.New()
	fs := &fakeSyncer{reg: reg}
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	eng, err := New(Options{
		Config:     config.Config{BasePath: t.TempDir(), RefreshInterval: time.Hour},
		Logs:       logging.Discard(),
		Registry:   reg,
		Syncer:     fs,
		Input:      pr,
		Output:     &syncBuffer{},
		RenderTick: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	waitFor(t, "initial refresh", func() bool { return fs.refreshCount() >= 1 })
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop on context cancel")
	}
}

func TestRun_WatcherTriggersRefreshOnNewProject(t *testing.T) {
	f := startEngine(t, func(o *Options) {
		o.WatchBasePath = true
		o.WatchDebounce = 30 * time.Millisecond
	})

	waitFor(t, "initial refresh", func() bool { return f.sync.refreshCount() >= 1 })
	baseline := f.sync.refreshCount()

	require.NoError(t, os.Mkdir(filepath.Join(f.cfg.BasePath, "newproject"), 0o755))

	waitFor(t, "watcher-triggered refresh", func() bool {
		return f.sync.refreshCount() > baseline
	})
	f.quit(t)
}

func TestReload_AppliesTargetIntervalAndVerbosity(t *testing.T) {
	f := startEngine(t, nil)
	waitFor(t, "initial refresh", func() bool { return f.sync.refreshCount() >= 1 })
	require.False(t, f.logs.Ring.Verbose())

	next := f.cfg
	next.BasePath = t.TempDir()
	next.GithubUser = "mona"
	next.RefreshInterval = 20 * time.Millisecond
	next.Verbose = true
	f.eng.Reload(next)

	waitFor(t, "retarget", func() bool { return f.sync.retargetCount() == 1 })
	f.sync.mu.Lock()
	assert.Equal(t, [2]string{next.BasePath, "mona"}, f.sync.retargets[0])
	f.sync.mu.Unlock()

	assert.True(t, f.logs.Ring.Verbose())

	// The shorter interval takes over: several cycles land quickly.
	waitFor(t, "faster refresh cadence", func() bool { return f.sync.refreshCount() >= 4 })

	f.quit(t)
}

func TestRun_BroadcastsFreshSnapshots(t *testing.T) {
	bcast := &fakeBroadcaster{}
	f := startEngine(t, func(o *Options) {
		o.Broadcaster = bcast
		o.MirrorAddr = "ws://localhost:0/ws"
	})

	waitFor(t, "a broadcast", func() bool { return bcast.count() >= 1 })

	bcast.mu.Lock()
	require.NotEmpty(t, bcast.snaps[0].Repos)
	assert.Equal(t, "alpha", bcast.snaps[0].Repos[0].Name)
	bcast.mu.Unlock()

	assert.Contains(t, f.out.String(), "ws://localhost:0/ws")
	f.quit(t)
}
