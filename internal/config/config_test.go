package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	l, err := NewLoader(path)
	require.NoError(t, err)
	return l, path
}

func TestLoad_CreatesDefaultFileWhenAbsent(t *testing.T) {
	l, path := newTestLoader(t)

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.GithubUser)
	assert.True(t, strings.HasSuffix(cfg.BasePath, "github"), "base path %q", cfg.BasePath)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "logs"), cfg.LogDir)
	assert.False(t, cfg.Dashboard.Enabled)
	assert.Equal(t, DefaultDashboardPort, cfg.Dashboard.Port)

	// The created file must round-trip as TOML with the same shape.
	var layout fileLayout
	_, err = toml.DecodeFile(path, &layout)
	require.NoError(t, err)
	assert.Equal(t, "4s", layout.General.RefreshInterval)
	assert.Equal(t, DefaultDashboardPort, layout.Dashboard.Port)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	l, path := newTestLoader(t)
	writeConfig(t, path, `
[general]
base_path = "/srv/checkouts"
github_user = "octocat"
refresh_interval = "10s"
verbose = true
log_dir = "/var/log/gitdrift"

[dashboard]
enabled = true
port = 9443
`)

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/checkouts", cfg.BasePath)
	assert.Equal(t, "octocat", cfg.GithubUser)
	assert.Equal(t, 10*time.Second, cfg.RefreshInterval)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "/var/log/gitdrift", cfg.LogDir)
	assert.True(t, cfg.Dashboard.Enabled)
	assert.Equal(t, 9443, cfg.Dashboard.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	l, path := newTestLoader(t)
	writeConfig(t, path, `
[general]
github_user = "from-file"
`)
	t.Setenv("GITDRIFT_GENERAL_GITHUB_USER", "from-env")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GithubUser)
}

func TestLoad_RecreatesCorruptFile(t *testing.T) {
	l, path := newTestLoader(t)
	writeConfig(t, path, "= this is [not toml\n")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(backup), "not toml")

	var layout fileLayout
	_, err = toml.DecodeFile(path, &layout)
	require.NoError(t, err, "recreated file must parse")
}

func TestLoad_FloorsTinyInterval(t *testing.T) {
	l, path := newTestLoader(t)
	writeConfig(t, path, `
[general]
refresh_interval = "250ms"
`)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)
}

func TestWrite_RoundTrips(t *testing.T) {
	l, _ := newTestLoader(t)
	want := Config{
		BasePath:        "/tmp/repos",
		GithubUser:      "mona",
		RefreshInterval: 7 * time.Second,
		Verbose:         true,
		LogDir:          "/tmp/logs",
		Dashboard:       Dashboard{Enabled: true, Port: 9000},
	}
	require.NoError(t, l.Write(want))

	got, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWatch_DeliversFreshSnapshot(t *testing.T) {
	l, path := newTestLoader(t)
	writeConfig(t, path, `
[general]
github_user = "before"
`)
	_, err := l.Load()
	require.NoError(t, err)

	updates := make(chan Config, 8)
	l.Watch(func(c Config) { updates <- c })

	// Give the watcher a moment to establish, then keep rewriting
	// until the change is observed.
	time.Sleep(100 * time.Millisecond)
	deadline := time.After(5 * time.Second)
	rewrite := time.NewTicker(250 * time.Millisecond)
	defer rewrite.Stop()

	writeConfig(t, path, "[general]\ngithub_user = \"after\"\n")
	for {
		select {
		case cfg := <-updates:
			if cfg.GithubUser == "after" {
				return
			}
		case <-rewrite.C:
			writeConfig(t, path, "[general]\ngithub_user = \"after\"\n")
		case <-deadline:
			t.Fatal("no config change observed")
		}
	}
}
