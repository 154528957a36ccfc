package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the config file interactively",
	Long: `Walk through the configuration and write it to the config file.
Existing values are offered as defaults, so init is also the way to
change a setting without editing TOML by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		basePath := cfg.BasePath
		user := cfg.GithubUser
		interval := cfg.RefreshInterval.String()
		verbose := cfg.Verbose
		mirror := cfg.Dashboard.Enabled
		port := strconv.Itoa(cfg.Dashboard.Port)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Base path").
					Description("Directory that holds your working copies").
					Value(&basePath),
				huh.NewInput().
					Title("GitHub account").
					Description("Repositories of this account are compared against").
					Value(&user),
				huh.NewInput().
					Title("Refresh interval").
					Description("Go duration, e.g. 4s or 1m").
					Validate(validInterval).
					Value(&interval),
				huh.NewConfirm().
					Title("Show debug entries in the log panel").
					Value(&verbose),
			),
			huh.NewGroup(
				huh.NewConfirm().
					Title("Serve a websocket mirror of the dashboard").
					Value(&mirror),
				huh.NewInput().
					Title("Mirror port").
					Validate(validPort).
					Value(&port),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}

		cfg.BasePath = basePath
		cfg.GithubUser = user
		cfg.RefreshInterval, _ = time.ParseDuration(interval)
		cfg.Verbose = verbose
		cfg.Dashboard.Enabled = mirror
		cfg.Dashboard.Port, _ = strconv.Atoi(port)

		if err := loader.Write(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", loader.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func validInterval(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("not a duration: %q", s)
	}
	if d < time.Second {
		return fmt.Errorf("minimum interval is 1s")
	}
	return nil
}

func validPort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
