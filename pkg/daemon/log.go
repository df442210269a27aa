package daemon

import (
	"fmt"
	"os"
)

// OpenLog opens (or reopens) the daemon's log file for appending. It is
// called once at startup and again on every SIGHUP, which lets an
// external log rotator move the old file aside without the daemon ever
// holding a stale, unlinked file descriptor.
func OpenLog(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file %s: %w", path, err)
	}
	return file, nil
}
