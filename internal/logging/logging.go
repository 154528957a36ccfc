// Package logging builds the dashboard's loggers.
//
// Three rotating files live under one log directory: runtime.log for
// general records, git.log for subprocess transcripts, and error.log
// for an error-level duplicate of both. The files always receive every
// level; the Verbose flag only gates which entries the in-memory ring
// exposes to the log panel.
package logging

import (
	"io"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Set bundles the dashboard's loggers. Runtime carries general
// records, Git carries subprocess transcripts, and Ring feeds the log
// panel with recent entries from both.
type Set struct {
	Runtime *logrus.Logger
	Git     *logrus.Logger
	Ring    *Ring
}

// Options configure New.
type Options struct {
	// Dir is the directory receiving runtime.log, error.log, git.log.
	Dir string

	// Verbose exposes debug entries in the panel ring. The files
	// always receive every level.
	Verbose bool

	// RingSize bounds the panel buffer; 0 means DefaultRingSize.
	RingSize int
}

// New builds the logger set. Files rotate at 10 MB with three old
// copies kept; the log directory is created on first write.
func New(opts Options) *Set {
	ring := NewRing(opts.RingSize)
	ring.SetVerbose(opts.Verbose)

	errorSink := newErrorHook(rotatingFile(opts.Dir, "error.log"))

	runtime := newFileLogger(rotatingFile(opts.Dir, "runtime.log"))
	runtime.AddHook(ring)
	runtime.AddHook(errorSink)

	git := newFileLogger(rotatingFile(opts.Dir, "git.log"))
	git.AddHook(ring)
	git.AddHook(errorSink)

	return &Set{Runtime: runtime, Git: git, Ring: ring}
}

// Discard returns a set whose files go nowhere. The ring still
// captures entries, which render and engine tests read back.
func Discard() *Set {
	ring := NewRing(0)
	quiet := func() *logrus.Logger {
		log := logrus.New()
		log.SetOutput(io.Discard)
		log.SetLevel(logrus.DebugLevel)
		log.AddHook(ring)
		return log
	}
	return &Set{Runtime: quiet(), Git: quiet(), Ring: ring}
}

func newFileLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

func rotatingFile(dir, name string) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
}

// errorHook copies error-and-above records into a second sink so
// failures are findable without scanning the full runtime log.
type errorHook struct {
	mu     sync.Mutex
	out    io.Writer
	format logrus.Formatter
}

func newErrorHook(out io.Writer) *errorHook {
	return &errorHook{
		out:    out,
		format: &logrus.TextFormatter{FullTimestamp: true},
	}
}

func (h *errorHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

func (h *errorHook) Fire(e *logrus.Entry) error {
	line, err := h.format.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(line)
	return err
}
