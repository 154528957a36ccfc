// Package engine runs the dashboard's background loops.
//
// The engine:
// 1. Refreshes the registry on a configurable interval
// 2. Turns key presses into commands and dispatches them
// 3. Renders a frame at a fixed cadence while jobs run concurrently
// 4. Optionally watches the base path and mirrors snapshots
// 5. Applies config reloads without a restart
//
// All goroutines are spawned through one task group; Run returns once
// every loop has exited.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"

	"github.com/mlabarre/gitdrift/internal/config"
	"github.com/mlabarre/gitdrift/internal/drift"
	"github.com/mlabarre/gitdrift/internal/input"
	"github.com/mlabarre/gitdrift/internal/logging"
	"github.com/mlabarre/gitdrift/internal/present"
	"github.com/mlabarre/gitdrift/internal/registry"
	"github.com/mlabarre/gitdrift/internal/task"
)

// DefaultRenderTick is the frame cadence. Rendering is decoupled from
// refreshing so the display stays live during long git operations.
const DefaultRenderTick = 200 * time.Millisecond

// DefaultWatchDebounce batches base-path filesystem events into one
// refresh command.
const DefaultWatchDebounce = 500 * time.Millisecond

// logTail is how many ring entries the log panel shows.
const logTail = 12

// Syncer is the reconciliation surface the engine drives.
type Syncer interface {
	Refresh(ctx context.Context) error
	ImportMissing(ctx context.Context, target string) error
	ExportLocal(ctx context.Context, target string) error
	Retarget(basePath, user string)
}

// Broadcaster receives each new snapshot, typically the websocket
// mirror. A nil Broadcaster disables mirroring.
type Broadcaster interface {
	Broadcast(snap drift.Snapshot)
}

// Options configure New. Config, Logs, Registry and Syncer are
// required; the rest default to a plain interactive setup.
type Options struct {
	Config    config.Config
	Logs      *logging.Set
	Registry  *registry.Registry
	Syncer    Syncer
	Presenter *present.Presenter

	// Input is the key source, os.Stdin by default.
	Input io.Reader

	// Output receives rendered frames, os.Stdout by default.
	Output io.Writer

	// Broadcaster mirrors snapshots when non-nil. MirrorAddr is shown
	// in the header panel.
	Broadcaster Broadcaster
	MirrorAddr  string

	// AltScreen switches the terminal to the alternate screen while
	// the engine runs. Leave false when Output is not a terminal.
	AltScreen bool

	// WatchBasePath enables the filesystem watcher that triggers a
	// refresh when projects appear or disappear under the base path.
	WatchBasePath bool

	RenderTick    time.Duration
	WatchDebounce time.Duration
}

// Engine owns the background loops and the command channel between
// intake and dispatch.
type Engine struct {
	mu  sync.Mutex
	cfg config.Config

	logs   *logging.Set
	log    *logrus.Logger
	reg    *registry.Registry
	syncer Syncer
	pres   *present.Presenter

	in  io.Reader
	out io.Writer

	bcast      Broadcaster
	mirrorAddr string

	altScreen     bool
	watchBase     bool
	renderTick    time.Duration
	watchDebounce time.Duration

	commands chan input.Command
	reload   chan struct{}
	rebase   chan string

	group  *task.Group
	cancel context.CancelFunc

	// lastCast tracks the newest broadcast snapshot; only the render
	// loop touches it.
	lastCast time.Time
}

// New validates opts and builds an engine.
func New(opts Options) (*Engine, error) {
	if opts.Logs == nil {
		return nil, errors.New("engine: Logs is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("engine: Registry is required")
	}
	if opts.Syncer == nil {
		return nil, errors.New("engine: Syncer is required")
	}
	if opts.Presenter == nil {
		opts.Presenter = present.New()
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.RenderTick <= 0 {
		opts.RenderTick = DefaultRenderTick
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = DefaultWatchDebounce
	}

	return &Engine{
		cfg:           opts.Config,
		logs:          opts.Logs,
		log:           opts.Logs.Runtime,
		reg:           opts.Registry,
		syncer:        opts.Syncer,
		pres:          opts.Presenter,
		in:            opts.Input,
		out:           opts.Output,
		bcast:         opts.Broadcaster,
		mirrorAddr:    opts.MirrorAddr,
		altScreen:     opts.AltScreen,
		watchBase:     opts.WatchBasePath,
		renderTick:    opts.RenderTick,
		watchDebounce: opts.WatchDebounce,
		commands:      make(chan input.Command, 16),
		reload:        make(chan struct{}, 1),
		rebase:        make(chan string, 1),
	}, nil
}

// Run starts every loop and blocks until the user quits or ctx is
// cancelled. The terminal is restored before it returns.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancel = cancel
	e.group = task.NewGroup(runCtx, e.log)

	keyboard := input.New(e.in, e.log)
	keys, err := keyboard.Start()
	if err != nil {
		return err
	}
	defer keyboard.Close()

	out := termenv.NewOutput(e.out)
	if e.altScreen {
		out.AltScreen()
		out.HideCursor()
		defer func() {
			out.ExitAltScreen()
			out.ShowCursor()
		}()
	}

	e.group.Spawn("intake", func(ctx context.Context) error {
		return e.intakeLoop(ctx, keys)
	})
	e.group.Spawn("refresh-loop", e.refreshLoop)
	e.group.Spawn("render-loop", func(ctx context.Context) error {
		return e.renderLoop(ctx, out)
	})
	if e.watchBase {
		e.group.Spawn("base-watcher", e.watchLoop)
	}

	e.log.Info("engine started")
	e.group.Wait()
	e.log.Info("engine stopped")
	return nil
}

// Reload applies a fresh configuration while the engine runs: target
// and verbosity take effect immediately, the refresh interval on the
// next tick, and the watcher rebinds to a changed base path.
func (e *Engine) Reload(cfg config.Config) {
	e.mu.Lock()
	old := e.cfg
	e.cfg = cfg
	e.mu.Unlock()

	e.syncer.Retarget(cfg.BasePath, cfg.GithubUser)
	e.logs.Ring.SetVerbose(cfg.Verbose)

	if cfg.RefreshInterval != old.RefreshInterval {
		select {
		case e.reload <- struct{}{}:
		default:
		}
	}
	if cfg.BasePath != old.BasePath {
		select {
		case e.rebase <- cfg.BasePath:
		default:
		}
	}

	e.log.WithFields(logrus.Fields{
		"base_path": cfg.BasePath,
		"user":      cfg.GithubUser,
		"interval":  cfg.RefreshInterval,
		"verbose":   cfg.Verbose,
	}).Info("configuration reloaded")

	e.enqueue(input.CmdRefresh)
}

func (e *Engine) snapshotConfig() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) enqueue(cmd input.Command) {
	select {
	case e.commands <- cmd:
	default:
		e.log.WithField("command", string(cmd)).Warn("command queue full, dropping")
	}
}

// intakeLoop forwards key commands into the dispatch channel. A
// closed key source counts as quit.
func (e *Engine) intakeLoop(ctx context.Context, keys <-chan input.Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-keys:
			if !ok {
				e.enqueue(input.CmdQuit)
				return nil
			}
			e.enqueue(cmd)
		}
	}
}

// refreshLoop runs a full reconciliation immediately and then on every
// interval tick. Interval changes land on the next tick.
func (e *Engine) refreshLoop(ctx context.Context) error {
	e.runRefresh(ctx)

	ticker := time.NewTicker(e.snapshotConfig().RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.reload:
			ticker.Reset(e.snapshotConfig().RefreshInterval)
		case <-ticker.C:
			e.runRefresh(ctx)
		}
	}
}

func (e *Engine) runRefresh(ctx context.Context) {
	if err := e.syncer.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		e.log.WithError(err).Warn("refresh failed, keeping previous state")
	}
}

// renderLoop draws a frame every tick and drains one command at a
// time in between. It never performs git or network work itself.
func (e *Engine) renderLoop(ctx context.Context, out *termenv.Output) error {
	ticker := time.NewTicker(e.renderTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-e.commands:
			e.dispatch(cmd)
		case <-ticker.C:
			e.render(out)
		}
	}
}

func (e *Engine) dispatch(cmd input.Command) {
	switch cmd {
	case input.CmdQuit:
		e.log.Info("shutdown requested")
		e.cancel()
	case input.CmdRefresh:
		e.group.Spawn("refresh", func(ctx context.Context) error {
			e.runRefresh(ctx)
			return nil
		})
	case input.CmdImport:
		e.group.Spawn("import-batch", func(ctx context.Context) error {
			return e.syncer.ImportMissing(ctx, "")
		})
	case input.CmdExport:
		e.group.Spawn("export-batch", func(ctx context.Context) error {
			return e.syncer.ExportLocal(ctx, "")
		})
	}
}

func (e *Engine) render(out *termenv.Output) {
	snap := e.reg.Snapshot()
	cfg := e.snapshotConfig()

	frame := e.pres.Frame(snap, e.logs.Ring.Tail(logTail), present.Meta{
		BasePath:        cfg.BasePath,
		GithubUser:      cfg.GithubUser,
		RefreshInterval: cfg.RefreshInterval,
		DashboardAddr:   e.mirrorAddr,
	})

	if e.altScreen {
		out.ClearScreen()
	}
	fmt.Fprintln(out, frame)

	if e.bcast != nil && !snap.LastUpdate.IsZero() && !snap.LastUpdate.Equal(e.lastCast) {
		e.bcast.Broadcast(snap)
		e.lastCast = snap.LastUpdate
	}
}

// watchLoop debounces create/remove events under the base path into a
// single refresh command.
func (e *Engine) watchLoop(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	base := e.snapshotConfig().BasePath
	if err := watcher.Add(base); err != nil {
		e.log.WithError(err).WithField("base_path", base).Warn("cannot watch base path")
	}

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case newBase := <-e.rebase:
			_ = watcher.Remove(base)
			base = newBase
			if err := watcher.Add(base); err != nil {
				e.log.WithError(err).WithField("base_path", base).Warn("cannot watch base path")
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			e.log.WithField("event", event.String()).Debug("base path changed")
			pending = true
			timer.Reset(e.watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.log.WithError(err).Warn("watcher error")

		case <-timer.C:
			if pending {
				pending = false
				e.enqueue(input.CmdRefresh)
			}
		}
	}
}
