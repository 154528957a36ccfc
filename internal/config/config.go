// Package config loads, auto-creates, and watches the gitdrift
// configuration file.
//
// The file is TOML, by default ~/.config/gitdrift/config.toml. Missing
// files are created with defaults so a first run works out of the box;
// unparseable files are moved aside to .bak and recreated. Every key
// can be overridden with a GITDRIFT_* environment variable.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultRefreshInterval is the pause between automatic refresh cycles.
const DefaultRefreshInterval = 4 * time.Second

// DefaultDashboardPort is where the websocket mirror listens when enabled.
const DefaultDashboardPort = 8080

// Dashboard configures the optional websocket mirror.
type Dashboard struct {
	Enabled bool
	Port    int
}

// Config is the resolved configuration injected into the engine. It is
// a plain value; hot reload delivers a fresh copy rather than mutating
// a shared one.
type Config struct {
	// BasePath is the directory holding the local working copies.
	BasePath string

	// GithubUser is the account whose hosted projects are listed.
	GithubUser string

	// RefreshInterval is the pause between automatic refresh cycles.
	RefreshInterval time.Duration

	// Verbose exposes debug entries in the dashboard log panel.
	Verbose bool

	// LogDir receives runtime.log, error.log and git.log.
	LogDir string

	Dashboard Dashboard
}

// Loader binds a viper instance to one config file path.
type Loader struct {
	v    *viper.Viper
	path string
}

// DefaultPath returns ~/.config/gitdrift/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gitdrift", "config.toml"), nil
}

// NewLoader builds a loader for path. An empty path selects
// DefaultPath.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("GITDRIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	home, _ := os.UserHomeDir()
	v.SetDefault("general.base_path", filepath.Join(home, "github"))
	v.SetDefault("general.github_user", "")
	v.SetDefault("general.refresh_interval", DefaultRefreshInterval.String())
	v.SetDefault("general.verbose", false)
	v.SetDefault("general.log_dir", filepath.Join(filepath.Dir(path), "logs"))
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", DefaultDashboardPort)

	return &Loader{v: v, path: path}, nil
}

// Path returns the config file location the loader is bound to.
func (l *Loader) Path() string { return l.path }

// Load reads the file, creating it with defaults when absent. A file
// that does not parse is moved aside to <path>.bak and recreated, so a
// broken edit never bricks the dashboard.
func (l *Loader) Load() (Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.WriteDefault(); err != nil {
			return Config{}, err
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if !errors.As(err, &parseErr) {
			return Config{}, fmt.Errorf("read config %s: %w", l.path, err)
		}
		backup := l.path + ".bak"
		if renameErr := os.Rename(l.path, backup); renameErr == nil {
			fmt.Fprintf(os.Stderr, "config %s is not valid TOML, saved to %s and recreated\n", l.path, backup)
		}
		if err := l.WriteDefault(); err != nil {
			return Config{}, err
		}
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", l.path, err)
		}
	}

	return l.snapshot(), nil
}

// Watch invokes fn with a fresh snapshot every time the file changes
// on disk. The callback runs on viper's watcher goroutine.
func (l *Loader) Watch(fn func(Config)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		fn(l.snapshot())
	})
	l.v.WatchConfig()
}

func (l *Loader) snapshot() Config {
	cfg := Config{
		BasePath:        l.v.GetString("general.base_path"),
		GithubUser:      l.v.GetString("general.github_user"),
		RefreshInterval: l.v.GetDuration("general.refresh_interval"),
		Verbose:         l.v.GetBool("general.verbose"),
		LogDir:          l.v.GetString("general.log_dir"),
		Dashboard: Dashboard{
			Enabled: l.v.GetBool("dashboard.enabled"),
			Port:    l.v.GetInt("dashboard.port"),
		},
	}
	// A bare integer edit parses as nanoseconds; anything below one
	// second falls back to the default.
	if cfg.RefreshInterval < time.Second {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Dashboard.Port <= 0 {
		cfg.Dashboard.Port = DefaultDashboardPort
	}
	return cfg
}

// fileLayout mirrors the on-disk TOML shape.
type fileLayout struct {
	General   generalSection   `toml:"general"`
	Dashboard dashboardSection `toml:"dashboard"`
}

type generalSection struct {
	BasePath        string `toml:"base_path"`
	GithubUser      string `toml:"github_user"`
	RefreshInterval string `toml:"refresh_interval"`
	Verbose         bool   `toml:"verbose"`
	LogDir          string `toml:"log_dir"`
}

type dashboardSection struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// WriteDefault writes the config file from the loader's current
// effective values, creating parent directories as needed.
func (l *Loader) WriteDefault() error {
	return l.write(l.snapshot())
}

// Write persists cfg to the loader's path. Used by the init wizard.
func (l *Loader) Write(cfg Config) error {
	return l.write(cfg)
}

func (l *Loader) write(cfg Config) error {
	var buf bytes.Buffer
	buf.WriteString("# gitdrift configuration\n")
	buf.WriteString("# Any key can be overridden with a GITDRIFT_<SECTION>_<KEY> environment variable.\n\n")

	layout := fileLayout{
		General: generalSection{
			BasePath:        cfg.BasePath,
			GithubUser:      cfg.GithubUser,
			RefreshInterval: cfg.RefreshInterval.String(),
			Verbose:         cfg.Verbose,
			LogDir:          cfg.LogDir,
		},
		Dashboard: dashboardSection{
			Enabled: cfg.Dashboard.Enabled,
			Port:    cfg.Dashboard.Port,
		},
	}
	if err := toml.NewEncoder(&buf).Encode(layout); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(l.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", l.path, err)
	}
	return nil
}
