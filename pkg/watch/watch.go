// Package watch owns gidget's single inotify instance: one registered
// watch per trick, a watch-id-indexed trick table, and the blocking
// read that decodes the kernel's event stream one record at a time.
package watch

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gidget-io/gidget/pkg/config"
	"github.com/gidget-io/gidget/pkg/mask"
)

// inotifyEventHeaderSize is the size, in bytes, of the fixed portion of a
// kernel inotify_event record (wd, mask, cookie, len), preceding any
// variable-length, null-padded name.
const inotifyEventHeaderSize = int(unsafe.Sizeof(unix.InotifyEvent{}))

// ErrNonSequentialWatch indicates that the kernel returned a watch
// descriptor that doesn't match the daemon's sequential-issuance
// assumption. This is a fatal, whole-daemon condition: the table can no
// longer be trusted to dispatch watch-id -> trick correctly.
var ErrNonSequentialWatch = errors.New("heap corrupt: watch descriptor issued out of sequence")

// Registry owns the daemon's single inotify watch instance and the
// watch-id-indexed trick table.
type Registry struct {
	fd      int
	tricks  []config.Trick
	bufSize int
}

// Open creates a new inotify watch instance. Only the daemon owns this
// descriptor; it is opened close-on-exec so script subprocesses never
// inherit it.
func Open() (*Registry, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("unable to create inotify instance: %w", err)
	}
	return &Registry{fd: fd, bufSize: inotifyEventHeaderSize + 256 + 1}, nil
}

// FD returns the underlying inotify file descriptor, for use by the
// event loop's blocking read.
func (r *Registry) FD() int {
	return r.fd
}

// SetBufferSize sizes the event-read buffer at event-header +
// max-name-length + 1. It must be called after all tricks have been
// registered and before the event loop begins reading.
func (r *Registry) SetBufferSize(maxNameLength int64) {
	r.bufSize = inotifyEventHeaderSize + int(maxNameLength) + 1
}

// BufferSize returns the currently configured event-read buffer size.
func (r *Registry) BufferSize() int {
	return r.bufSize
}

// Register adds a watch for trick.Path with trick.EventMask, assigns the
// kernel-returned watch descriptor to the trick, and appends it to the
// registry's table. A registration failure is reported to the caller
// (not fatal); a non-sequential descriptor is fatal for the whole
// daemon, surfaced as ErrNonSequentialWatch, since it would otherwise
// cause silent mis-dispatch.
func (r *Registry) Register(trick config.Trick) error {
	wd, err := unix.InotifyAddWatch(r.fd, trick.Path, uint32(trick.EventMask))
	if err != nil {
		return fmt.Errorf("unable to register watch for %q: %w", trick.Path, err)
	}

	if err := checkSequential(wd, len(r.tricks)+1); err != nil {
		return err
	}

	trick.WatchID = wd
	r.tricks = append(r.tricks, trick)
	return nil
}

// checkSequential validates the kernel's sequential-issuance invariant
// in isolation from the syscall layer, so that the
// non-sequential-descriptor fatal path is directly testable without
// stubbing the kernel.
func checkSequential(wd, expected int) error {
	if wd != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonSequentialWatch, expected, wd)
	}
	return nil
}

// Lookup returns the trick registered under watchID, indexed as
// watchID-1.
func (r *Registry) Lookup(watchID int) (config.Trick, bool) {
	index := watchID - 1
	if index < 0 || index >= len(r.tricks) {
		return config.Trick{}, false
	}
	return r.tricks[index], true
}

// Len returns the number of registered tricks.
func (r *Registry) Len() int {
	return len(r.tricks)
}

// Close destroys the watch instance. Implicitly invalidates every watch
// registered against it.
func (r *Registry) Close() error {
	return unix.Close(r.fd)
}

// Event is a decoded kernel notification: the watch-id it fired
// against, the bitmap of triggered classes, a cookie pairing
// moved-from/moved-to events, and, when the watched path is a directory
// and an entry within it changed, the name of that entry.
type Event struct {
	WatchID int
	Mask    mask.Mask
	Cookie  uint32
	Name    string
}

// ReadResult is the outcome of a single blocking read against the watch
// instance.
type ReadResult struct {
	// Event is the decoded first event record in the read buffer. Only
	// the first event record in a given read is decoded even if the
	// kernel packed several into one read; each read dispatches exactly
	// one event.
	Event Event
	// Interrupted indicates the read was interrupted by a signal before
	// any data was read; the caller should consult its signal discipline
	// rather than treat this as an event.
	Interrupted bool
	// EOF indicates the read returned zero bytes.
	EOF bool
}

// Read performs one blocking read against the watch instance and decodes
// the first event record it contains. buf must be at least
// r.BufferSize() bytes.
func (r *Registry) Read(buf []byte) (ReadResult, error) {
	n, err := unix.Read(r.fd, buf)
	if err != nil {
		if err == unix.EINTR {
			return ReadResult{Interrupted: true}, nil
		}
		return ReadResult{}, fmt.Errorf("watch instance read failed: %w", err)
	}
	if n <= 0 {
		return ReadResult{EOF: true}, nil
	}
	if n < inotifyEventHeaderSize {
		return ReadResult{}, fmt.Errorf("short read from watch instance: %d bytes", n)
	}

	raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[0]))
	event := Event{
		WatchID: int(raw.Wd),
		Mask:    mask.Mask(raw.Mask),
		Cookie:  raw.Cookie,
	}

	if raw.Len > 0 {
		nameStart := inotifyEventHeaderSize
		nameEnd := nameStart + int(raw.Len)
		if nameEnd > n {
			nameEnd = n
		}
		name := string(buf[nameStart:nameEnd])
		if idx := strings.IndexByte(name, 0); idx != -1 {
			name = name[:idx]
		}
		event.Name = name
	}

	return ReadResult{Event: event}, nil
}
