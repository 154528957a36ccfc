package logging

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRingSize bounds the in-memory entry buffer.
const DefaultRingSize = 200

// Entry is one captured record, flattened for the log panel.
type Entry struct {
	Time    time.Time
	Level   logrus.Level
	Message string
}

// Ring is a bounded buffer of recent log entries, attached to loggers
// as a logrus hook. It captures every level and filters on read, so
// flipping Verbose live also reveals recently buffered debug entries.
// Safe for concurrent use.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	cap     int
	verbose bool
}

// NewRing creates a ring holding up to capacity entries. A
// non-positive capacity falls back to DefaultRingSize.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &Ring{entries: make([]Entry, 0, capacity), cap: capacity}
}

// Levels implements logrus.Hook.
func (r *Ring) Levels() []logrus.Level { return logrus.AllLevels }

// Fire implements logrus.Hook, recording the entry with its fields
// rendered inline. The oldest entry is dropped once the ring is full.
func (r *Ring) Fire(e *logrus.Entry) error {
	msg := e.Message
	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString(msg)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
		}
		msg = b.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.cap {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:r.cap-1]
	}
	r.entries = append(r.entries, Entry{Time: e.Time, Level: e.Level, Message: msg})
	return nil
}

// SetVerbose controls whether Tail exposes debug entries.
func (r *Ring) SetVerbose(v bool) {
	r.mu.Lock()
	r.verbose = v
	r.mu.Unlock()
}

// Verbose reports the current panel gate.
func (r *Ring) Verbose() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.verbose
}

// Tail returns the most recent n visible entries, oldest first. Debug
// and trace entries are hidden unless verbose is on.
func (r *Ring) Tail(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, n)
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		e := r.entries[i]
		if !r.verbose && e.Level > logrus.InfoLevel {
			continue
		}
		out = append(out, e)
	}
	slices.Reverse(out)
	return out
}
