package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mlabarre/gitdrift/internal/dashboard"
	"github.com/mlabarre/gitdrift/internal/engine"
	"github.com/mlabarre/gitdrift/internal/github"
	"github.com/mlabarre/gitdrift/internal/logging"
	"github.com/mlabarre/gitdrift/internal/reconcile"
	"github.com/mlabarre/gitdrift/internal/registry"
	"github.com/mlabarre/gitdrift/internal/vcs/git"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the live dashboard",
	Long: `Start the live dashboard: refresh every project under the base path
against the GitHub account, render the table, and react to keys.

  1/r  refresh now
  2/i  import projects that exist only on GitHub
  3/e  export projects that exist only locally
  q    quit

Edits to the config file apply without a restart. When [dashboard] is
enabled a websocket mirror of every snapshot is served alongside the
terminal view.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDashboard() error {
	loader, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logs := logging.New(logging.Options{Dir: cfg.LogDir, Verbose: cfg.Verbose})

	reg := registry.New()
	svc := reconcile.New(reg, git.New(logs.Git), github.NewClient(logs.Runtime),
		cfg.BasePath, cfg.GithubUser, logs.Runtime)

	opts := engine.Options{
		Config:        cfg,
		Logs:          logs,
		Registry:      reg,
		Syncer:        svc,
		AltScreen:     term.IsTerminal(int(os.Stdout.Fd())),
		WatchBasePath: true,
	}

	if cfg.Dashboard.Enabled {
		server := dashboard.NewServer(dashboard.Config{Port: cfg.Dashboard.Port, Log: logs.Runtime})
		if err := server.Start(); err != nil {
			return fmt.Errorf("start dashboard mirror: %w", err)
		}
		defer func() {
			if err := server.Stop(); err != nil {
				logs.Runtime.WithError(err).Warn("dashboard mirror shutdown")
			}
		}()
		opts.Broadcaster = server
		opts.MirrorAddr = fmt.Sprintf("ws://localhost:%d/ws", cfg.Dashboard.Port)
	}

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}
	loader.Watch(eng.Reload)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return eng.Run(ctx)
}
