// Package must wraps operations whose errors are worth logging but not
// worth propagating — typically cleanup calls made from inside a defer
// or an already-failing path, where the original error is what matters
// and a second return value would just clutter every call site.
package must

import (
	"io"
	"os"

	"github.com/gidget-io/gidget/pkg/logging"
)

// Close closes c, logging a warning if it fails.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %s", err.Error())
	}
}

// OSRemove removes the file at name, logging a warning if it fails.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil {
		logger.Warnf("unable to remove %q: %s", name, err.Error())
	}
}

// Unlock unlocks locker, logging a warning if it fails.
func Unlock(locker interface{ Unlock() error }, logger *logging.Logger) {
	if err := locker.Unlock(); err != nil {
		logger.Warnf("unable to unlock: %s", err.Error())
	}
}

// Release releases r, logging a warning if it fails.
func Release(r interface{ Release() error }, logger *logging.Logger) {
	if err := r.Release(); err != nil {
		logger.Warnf("unable to release: %s", err.Error())
	}
}
