package daemon

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/gidget-io/gidget/pkg/logging"
	"github.com/gidget-io/gidget/pkg/must"
)

// Lock represents the acquired, exclusively-locked pidfile that
// prevents more than one gidget instance from running against the same
// run directory at once.
type Lock struct {
	file   *os.File
	logger *logging.Logger
}

// AcquireLock opens path (creating it if necessary), takes a
// non-blocking exclusive flock(2) on it, and writes the calling
// process's pid. A failure to acquire the lock means another instance
// already holds it; the caller should treat this as fatal.
func AcquireLock(path string, logger *logging.Logger) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open pidfile: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		must.Close(file, logger)
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("another gidget instance already holds the pidfile lock")
		}
		return nil, fmt.Errorf("unable to lock pidfile: %w", err)
	}

	if err := file.Truncate(0); err != nil {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		must.Close(file, logger)
		return nil, fmt.Errorf("unable to truncate pidfile: %w", err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		must.Close(file, logger)
		return nil, fmt.Errorf("unable to write pid: %w", err)
	}

	return &Lock{file: file, logger: logger}, nil
}

// Release unlocks and closes the pidfile. It does not remove the file,
// so that a crashed-and-restarted daemon can re-acquire the same path.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		must.Close(l.file, l.logger)
		return fmt.Errorf("unable to unlock pidfile: %w", err)
	}
	return l.file.Close()
}
