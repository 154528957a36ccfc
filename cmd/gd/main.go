// Command gd is a terminal dashboard that reconciles local working
// copies against the repositories a GitHub account hosts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlabarre/gitdrift/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gd",
	Short: "Terminal dashboard for drift between local and GitHub repositories",
	Long: `gd watches a directory of working copies and the repositories a GitHub
account hosts, and shows how far each pair has drifted apart.

With no arguments it starts the live dashboard. One-shot output and
configuration live in the subcommands.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/gitdrift/config.toml)")
}

// loadConfig builds the loader on demand so help and version run
// without touching the filesystem.
func loadConfig() (*config.Loader, config.Config, error) {
	loader, err := config.NewLoader(cfgFile)
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	return loader, cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
