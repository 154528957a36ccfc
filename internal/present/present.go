// Package present renders registry snapshots as terminal frames.
//
// The Presenter is a pure formatter: given a snapshot, recent log
// entries and the effective configuration it returns one frame as a
// string. It never touches the registry or the terminal itself; the
// engine decides when to render and where the output goes.
package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/mlabarre/gitdrift/internal/drift"
	"github.com/mlabarre/gitdrift/internal/logging"
)

// Column widths for the repo table. Names longer than colRepo are
// truncated with an ellipsis.
const (
	colRepo    = 32
	colPct     = 8
	colCommits = 11
	colLines   = 8
	colSync    = 22

	maxLogLineLen = 100
)

// Meta is the configuration view shown in the header panel.
type Meta struct {
	BasePath        string
	GithubUser      string
	RefreshInterval time.Duration

	// DashboardAddr is the websocket mirror address, empty when the
	// mirror is disabled.
	DashboardAddr string
}

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	key      lipgloss.Style
	header   lipgloss.Style
	muted    lipgloss.Style
	repoName lipgloss.Style

	good lipgloss.Style
	warn lipgloss.Style
	bad  lipgloss.Style

	levelError lipgloss.Style
	levelWarn  lipgloss.Style
	levelDebug lipgloss.Style

	headerPanel lipgloss.Style
	repoPanel   lipgloss.Style
	jobsPanel   lipgloss.Style
	logPanel    lipgloss.Style
}

func newStyles() styles {
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		value:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		key:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		header:   lipgloss.NewStyle().Bold(true),
		muted:    lipgloss.NewStyle().Faint(true),
		repoName: lipgloss.NewStyle().Bold(true),

		good: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warn: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		bad:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		levelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		levelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		levelDebug: lipgloss.NewStyle().Faint(true),

		headerPanel: panel.BorderForeground(lipgloss.Color("2")),
		repoPanel:   panel.BorderForeground(lipgloss.Color("6")),
		jobsPanel:   panel.BorderForeground(lipgloss.Color("3")),
		logPanel:    panel.BorderForeground(lipgloss.Color("5")),
	}
}

// Presenter formats frames. Safe to reuse across renders; it holds
// only immutable styles.
type Presenter struct {
	st styles
}

// New builds a Presenter.
func New() *Presenter {
	return &Presenter{st: newStyles()}
}

// Frame renders one full dashboard frame: header, repo table, jobs
// panel (only while jobs are active) and the log tail.
func (p *Presenter) Frame(snap drift.Snapshot, logs []logging.Entry, meta Meta) string {
	parts := []string{
		p.headerPanel(snap, meta),
		p.repoPanel(snap),
	}
	if len(snap.Jobs) > 0 {
		parts = append(parts, p.jobsPanel(snap.Jobs))
	}
	parts = append(parts, p.logPanel(logs))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (p *Presenter) headerPanel(snap drift.Snapshot, meta Meta) string {
	sum := snap.Summarize()

	lastUpdate := "never"
	if !snap.LastUpdate.IsZero() {
		lastUpdate = snap.LastUpdate.Format("15:04:05")
	}

	lines := []string{
		p.st.title.Render("GITDRIFT"),
		p.line("base path ", meta.BasePath),
		p.line("account   ", meta.GithubUser),
		p.line("interval  ", meta.RefreshInterval.String()),
		p.line("updated   ", lastUpdate),
	}
	if meta.DashboardAddr != "" {
		lines = append(lines, p.line("mirror    ", meta.DashboardAddr))
	}
	lines = append(lines,
		p.line("projects  ", fmt.Sprintf("%d local / %d remote / %d in both", sum.Local, sum.Remote, sum.Both)),
		"",
		strings.Join([]string{
			p.st.key.Render("1/r")+" refresh",
			p.st.key.Render("2/i")+" import",
			p.st.key.Render("3/e")+" export",
			p.st.key.Render("q")+" quit",
		}, "   "),
	)
	return p.st.headerPanel.Render(strings.Join(lines, "\n"))
}

func (p *Presenter) line(label, value string) string {
	return p.st.label.Render(label) + p.st.value.Render(value)
}

func (p *Presenter) repoPanel(snap drift.Snapshot) string {
	lines := append([]string{p.st.title.Render("PROJECTS")}, p.repoRows(snap)...)
	return p.st.repoPanel.Render(strings.Join(lines, "\n"))
}

// Table renders the project table and summary line without borders,
// for one-shot output outside the live view.
func (p *Presenter) Table(snap drift.Snapshot) string {
	sum := snap.Summarize()
	lines := append(p.repoRows(snap), "",
		fmt.Sprintf("%d local / %d remote / %d in both", sum.Local, sum.Remote, sum.Both))
	return strings.Join(lines, "\n")
}

func (p *Presenter) repoRows(snap drift.Snapshot) []string {
	header := strings.Join([]string{
		padRight(p.st.header.Render("Repo"), colRepo),
		padLeft(p.st.header.Render("Local %"), colPct),
		padLeft(p.st.header.Render("Remote %"), colPct+1),
		center(p.st.header.Render("Δ commits"), colCommits),
		padLeft(p.st.header.Render("Δ lines"), colLines),
		padLeft(p.st.header.Render("Global %"), colPct),
		padRight(p.st.header.Render("Sync"), colSync),
	}, "  ")

	jobsByName := make(map[string]drift.SyncJob, len(snap.Jobs))
	for _, j := range snap.Jobs {
		jobsByName[j.Name] = j
	}

	lines := []string{header}
	if len(snap.Repos) == 0 {
		lines = append(lines, p.st.muted.Render("no projects found"))
	}
	for _, r := range snap.Repos {
		sync := p.Bar(r.GlobalPct)
		if job, ok := jobsByName[r.Name]; ok {
			sync = strings.ToUpper(string(job.Mode)) + " " + p.JobBar(job.Progress)
		}
		lines = append(lines, strings.Join([]string{
			padRight(p.st.repoName.Render(truncate(r.Name, colRepo)), colRepo),
			padLeft(p.percent(r.LocalPct), colPct),
			padLeft(p.percent(r.RemotePct), colPct+1),
			center(r.DeltaCommits, colCommits),
			padLeft(fmt.Sprintf("%d", r.DeltaLines), colLines),
			padLeft(p.percent(r.GlobalPct), colPct),
			padRight(sync, colSync),
		}, "  "))
	}
	return lines
}

func (p *Presenter) jobsPanel(jobs []drift.SyncJob) string {
	lines := []string{p.st.title.Render("JOBS")}
	for _, j := range jobs {
		status := string(j.Status)
		switch j.Status {
		case drift.StatusDone:
			status = p.st.good.Render(status)
		case drift.StatusError:
			status = p.st.bad.Render(status)
		default:
			status = p.st.value.Render(status)
		}
		lines = append(lines, strings.Join([]string{
			padRight(truncate(j.Name, colRepo), colRepo),
			padRight(strings.ToUpper(string(j.Mode)), 6),
			p.JobBar(j.Progress),
			status,
		}, "  "))
	}
	return p.st.jobsPanel.Render(strings.Join(lines, "\n"))
}

func (p *Presenter) logPanel(logs []logging.Entry) string {
	lines := []string{p.st.title.Render("RECENT LOGS")}
	if len(logs) == 0 {
		lines = append(lines, p.st.muted.Render("no log entries yet"))
	}
	for _, e := range logs {
		msg := e.Message
		if len([]rune(msg)) > maxLogLineLen {
			msg = string([]rune(msg)[:maxLogLineLen-3]) + "..."
		}
		line := fmt.Sprintf("%s  %s  %s", e.Time.Format("15:04:05"), padRight(levelTag(e.Level), 5), msg)
		switch {
		case e.Level <= logrus.ErrorLevel:
			line = p.st.levelError.Render(line)
		case e.Level == logrus.WarnLevel:
			line = p.st.levelWarn.Render(line)
		case e.Level >= logrus.DebugLevel:
			line = p.st.levelDebug.Render(line)
		}
		lines = append(lines, line)
	}
	return p.st.logPanel.Render(strings.Join(lines, "\n"))
}

func (p *Presenter) percent(pct int) string {
	return p.band(pct).Render(fmt.Sprintf("%3d%%", pct))
}

func (p *Presenter) band(pct int) lipgloss.Style {
	switch {
	case pct >= 99:
		return p.st.good
	case pct >= 50:
		return p.st.warn
	default:
		return p.st.bad
	}
}

// Bar renders a 10-cell sync bar for a 0-100 percentage, colored by
// the same bands as the percent cells.
func (p *Presenter) Bar(pct int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * barCells / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("·", barCells-filled)
	return p.band(pct).Render(bar) + fmt.Sprintf(" %3d%%", pct)
}

// JobBar renders the progress bar for a 0.0-1.0 job checkpoint.
func (p *Presenter) JobBar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return p.Bar(int(progress * 100))
}

const barCells = 10

// levelTag is the fixed-width level column for the log panel.
func levelTag(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel:
		return "PANIC"
	case logrus.FatalLevel:
		return "FATAL"
	case logrus.ErrorLevel:
		return "ERROR"
	case logrus.WarnLevel:
		return "WARN"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.DebugLevel:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// padRight and padLeft pad by rendered width so styled cells line up.
func padRight(s string, w int) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func padLeft(s string, w int) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return strings.Repeat(" ", gap) + s
}

func center(s string, w int) string {
	return lipgloss.PlaceHorizontal(w, lipgloss.Center, s)
}
