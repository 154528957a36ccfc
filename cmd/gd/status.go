package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mlabarre/gitdrift/internal/github"
	"github.com/mlabarre/gitdrift/internal/logging"
	"github.com/mlabarre/gitdrift/internal/present"
	"github.com/mlabarre/gitdrift/internal/reconcile"
	"github.com/mlabarre/gitdrift/internal/registry"
	"github.com/mlabarre/gitdrift/internal/vcs/git"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Refresh once and print the project table",
	Long: `Refresh every project once and print the result without entering the
live view. Useful from scripts or when stdout is not a terminal.

  gd status                # plain table
  gd status --format yaml  # full snapshot as YAML`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusFormat != "table" && statusFormat != "yaml" {
			return fmt.Errorf("unknown format %q (want table or yaml)", statusFormat)
		}

		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logs := logging.New(logging.Options{Dir: cfg.LogDir, Verbose: cfg.Verbose})

		reg := registry.New()
		svc := reconcile.New(reg, git.New(logs.Git), github.NewClient(logs.Runtime),
			cfg.BasePath, cfg.GithubUser, logs.Runtime)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := svc.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}

		snap := reg.Snapshot()
		if statusFormat == "yaml" {
			out, err := yaml.Marshal(snap)
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), present.New().Table(snap))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "table", "Output format: table or yaml")
	rootCmd.AddCommand(statusCmd)
}
