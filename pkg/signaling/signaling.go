// Package signaling implements the daemon's signal discipline: traps
// for terminate, interrupt, and hangup, exposing the last-caught signal
// to the event loop through a word-sized atomic flag.
//
// Go cannot install true async-signal-safe C handlers; the runtime
// instead delivers signals to a channel drained by a dedicated
// goroutine. That goroutine writes the caught-flag (an atomic store),
// writes one wake-up byte to the self-pipe, and, for an interrupt only,
// logs one line; it touches no other state.
package signaling

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/gidget-io/gidget/pkg/logging"
)

// Signal identifies which trapped signal was last caught.
type Signal int32

const (
	// None indicates no signal has been caught since the last consume.
	None Signal = iota
	// Hangup indicates SIGHUP was caught; the event loop should reopen
	// its log files and resume.
	Hangup
	// Terminate indicates SIGTERM was caught; the event loop should log
	// and exit normally.
	Terminate
	// Interrupt indicates SIGINT was caught; the event loop should log
	// and exit normally.
	Interrupt
)

// Discipline holds the process-wide signal-caught flag and the
// goroutine relaying OS signal delivery into it.
//
// The Go runtime installs its signal handlers with SA_RESTART, so a
// blocking read against the watch instance is transparently restarted
// after a signal and never observes EINTR. To still interrupt the event
// loop's wait, the discipline carries a self-pipe: the relay goroutine
// writes one byte per caught signal, and the loop polls the pipe's read
// end alongside the watch descriptor.
type Discipline struct {
	caught atomic.Int32
	logger *logging.Logger

	wakeRead  int
	wakeWrite int
}

// Install traps SIGHUP, SIGTERM, and SIGINT. SIGCHLD keeps its default
// disposition: gidget's workers reap their own script and mail
// transport subprocesses directly via (*exec.Cmd).Wait, which needs the
// kernel to keep each exited child around until it is waited for.
func Install(logger *logging.Logger) (*Discipline, error) {
	d := &Discipline{logger: logger}

	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, err
	}
	d.wakeRead, d.wakeWrite = pipe[0], pipe[1]

	incoming := make(chan os.Signal, 4)
	signal.Notify(incoming, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)

	go d.relay(incoming)

	return d, nil
}

// relay stands in for the signal handler bodies: it records which
// signal arrived and pokes the wake pipe so a loop blocked in poll
// notices.
func (d *Discipline) relay(incoming <-chan os.Signal) {
	for sig := range incoming {
		switch sig {
		case syscall.SIGHUP:
			d.caught.Store(int32(Hangup))
		case syscall.SIGTERM:
			d.caught.Store(int32(Terminate))
		case syscall.SIGINT:
			d.logger.Info("Interrupted.")
			d.caught.Store(int32(Interrupt))
		default:
			continue
		}
		// A full pipe already guarantees a pending wakeup.
		unix.Write(d.wakeWrite, []byte{0})
	}
}

// WakeFD returns the read end of the self-pipe, for inclusion in the
// event loop's poll set.
func (d *Discipline) WakeFD() int {
	return d.wakeRead
}

// Drain consumes any pending wakeup bytes from the self-pipe so a
// handled signal doesn't leave the pipe readable forever.
func (d *Discipline) Drain() {
	var buf [16]byte
	for {
		n, err := unix.Read(d.wakeRead, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Consume atomically reads and clears the caught-flag. The flag is
// written once per caught signal and cleared by the loop upon
// consumption.
func (d *Discipline) Consume() Signal {
	return Signal(d.caught.Swap(int32(None)))
}

// Peek reads the caught-flag without clearing it.
func (d *Discipline) Peek() Signal {
	return Signal(d.caught.Load())
}
