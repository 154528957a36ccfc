// Package task runs supervised background goroutines.
//
// Every long-lived goroutine in the engine is spawned through a Group,
// which hands back a Handle with cancel-request and completion-wait.
// Stopping the group cancels one shared context and waits for every
// task to return, so shutdown never leaks a loop. A panic inside a
// task is recovered and logged at the task boundary; siblings keep
// running.
package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Func is the body of a supervised task. It must return promptly once
// ctx is cancelled.
type Func func(ctx context.Context) error

// Handle tracks one spawned task.
type Handle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Name returns the name the task was spawned with.
func (h *Handle) Name() string { return h.name }

// Cancel requests the task to stop. It does not wait.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the task has returned.
func (h *Handle) Wait() { <-h.done }

// Done returns a channel that is closed once the task has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task's result. It is nil until the task finishes.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

// Group supervises a set of tasks under one cancellable context.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Logger
	wg     sync.WaitGroup
}

// NewGroup creates a task group whose context descends from parent.
// A nil logger discards task lifecycle records.
func NewGroup(parent context.Context, log *logrus.Logger) *Group {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel, log: log}
}

// Context returns the group's shared context. Code that only needs to
// observe shutdown can select on it without holding a Handle.
func (g *Group) Context() context.Context { return g.ctx }

// Spawn starts fn on its own goroutine under the group context and
// returns its handle. Panics inside fn are recovered, logged with a
// stack, and recorded as the task's error; they never crash siblings.
func (g *Group) Spawn(name string, fn Func) *Handle {
	ctx, cancel := context.WithCancel(g.ctx)
	h := &Handle{name: name, cancel: cancel, done: make(chan struct{})}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer close(h.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				g.log.WithFields(logrus.Fields{
					"task":  name,
					"panic": r,
				}).Error("task panicked\n" + string(debug.Stack()))
				h.setErr(fmt.Errorf("task %s panicked: %v", name, r))
			}
		}()

		g.log.WithField("task", name).Debug("task started")
		err := fn(ctx)
		h.setErr(err)

		if err != nil && !errors.Is(err, context.Canceled) {
			g.log.WithField("task", name).WithError(err).Error("task failed")
			return
		}
		g.log.WithField("task", name).Debug("task finished")
	}()

	return h
}

// Stop cancels the group context and waits for every task to return.
func (g *Group) Stop() {
	g.cancel()
	g.wg.Wait()
}

// Wait blocks until all spawned tasks have returned, without
// requesting cancellation.
func (g *Group) Wait() {
	g.wg.Wait()
}
