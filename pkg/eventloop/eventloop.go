// Package eventloop implements the daemon's single-threaded
// blocking-read loop: it consumes the kernel event stream from a
// watch.Registry, handles signal-interrupted reads, flags
// overflow/unmount/ignored conditions, and dispatches accepted events
// to the worker for execution.
package eventloop

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/gidget-io/gidget/pkg/config"
	"github.com/gidget-io/gidget/pkg/logging"
	"github.com/gidget-io/gidget/pkg/mask"
	"github.com/gidget-io/gidget/pkg/signaling"
	"github.com/gidget-io/gidget/pkg/watch"
	"github.com/gidget-io/gidget/pkg/worker"
)

// Dispatcher abstracts the worker's per-event execution so tests can
// substitute a recording stub instead of actually resolving accounts and
// executing scripts.
type Dispatcher interface {
	Process(trick config.Trick, eventName string, eventMask mask.Mask, maxNameLength int) worker.Result
}

// ReopenLogs is called when the loop receives a hangup signal, giving
// the caller a chance to close and reopen its log files before the read
// resumes.
type ReopenLogs func() error

// Loop drives the blocking read against registry, decoding and
// dispatching events until a terminal signal or unrecoverable read
// condition ends it. Each accepted event is handed to dispatcher on its
// own goroutine so the loop returns to its read immediately.
type Loop struct {
	Registry      *watch.Registry
	Discipline    *signaling.Discipline
	Logger        *logging.Logger
	Dispatcher    Dispatcher
	MaxNameLength int
	ReopenLogs    ReopenLogs
}

// Run executes the loop until it decides to stop normally (terminate,
// interrupt, or an unhandled signal) and returns nil, or until a kernel
// invariant violation forces it to return a non-nil error, which the
// caller should treat as fatal.
func (l *Loop) Run() error {
	buf := make([]byte, l.Registry.BufferSize())

	// The Go runtime restarts syscalls interrupted by its own signal
	// handlers, so the wait polls the watch descriptor alongside the
	// discipline's self-pipe rather than relying on EINTR out of the
	// read itself.
	pollSet := []unix.PollFd{
		{Fd: int32(l.Registry.FD()), Events: unix.POLLIN},
		{Fd: int32(l.Discipline.WakeFD()), Events: unix.POLLIN},
	}

	for {
		pollSet[0].Revents = 0
		pollSet[1].Revents = 0
		if _, err := unix.Poll(pollSet, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("watch instance poll failed: %w", err)
		}

		if pollSet[1].Revents&unix.POLLIN != 0 {
			l.Discipline.Drain()
			if stop := l.handleSignal(); stop {
				return nil
			}
			continue
		}

		if pollSet[0].Revents&unix.POLLIN == 0 {
			continue
		}

		result, err := l.Registry.Read(buf)
		if err != nil {
			return fmt.Errorf("watch instance read failed: %w", err)
		}

		if result.Interrupted {
			if stop := l.handleSignal(); stop {
				return nil
			}
			continue
		}

		if result.EOF {
			return fmt.Errorf("heap corrupt: zero-length read from watch instance")
		}

		l.dispatch(result.Event)
	}
}

// handleSignal consumes the discipline's caught-flag and acts on it,
// returning true when the loop should stop. Hangup reopens log files
// and resumes; terminate and interrupt stop the loop cleanly.
func (l *Loop) handleSignal() bool {
	switch l.Discipline.Consume() {
	case signaling.Hangup:
		if l.ReopenLogs != nil {
			if err := l.ReopenLogs(); err != nil {
				l.Logger.Errorf("unable to reopen log files: %v", err)
			}
		}
		return false
	case signaling.Interrupt:
		l.Logger.Info("Terminating on interrupt.")
		return true
	case signaling.Terminate:
		l.Logger.Info("Terminating.")
		return true
	case signaling.None:
		// A stale wakeup with nothing to act on.
		return false
	default:
		l.Logger.Info("Terminating on unexpected signal.")
		return true
	}
}

// dispatch classifies a decoded event and, if it names a live trick,
// hands it to the dispatcher on its own goroutine. Overflow and unmount
// are logged as a "grievous error" and never dispatched; an ignored
// event marks a watch invalidated but is itself informational only.
func (l *Loop) dispatch(event watch.Event) {
	if event.Mask.Has(mask.QueueOverflow) {
		l.Logger.Error("grievous error: inotify event queue overflow")
		return
	}
	if event.Mask.Has(mask.Unmount) {
		l.Logger.Error("grievous error: backing filesystem unmounted")
		return
	}
	if event.Mask.Has(mask.Ignored) {
		l.Logger.Infof("watch %d invalidated", event.WatchID)
		return
	}

	trick, ok := l.Registry.Lookup(event.WatchID)
	if !ok {
		l.Logger.Errorf("received event for unknown watch %d", event.WatchID)
		return
	}

	if l.Logger.Verbose() {
		l.Logger.Debugf("watch %d: dispatching event mask %s", event.WatchID, event.Mask)
	}

	go l.Dispatcher.Process(trick, event.Name, event.Mask, l.MaxNameLength)
}
