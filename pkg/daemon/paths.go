// Package daemon detaches gidget from its controlling terminal, writes
// and locks the pidfile that enforces a single running instance, and
// opens the log file the detached process continues writing to.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// defaultPIDPath is used when no -p override is supplied.
	defaultPIDPath = "/var/run/gidget.pid"
	// defaultLogPath is used when no -l override is supplied.
	defaultLogPath = "/var/log/gidget"
)

// Paths locates the files a running daemon instance needs: its pidfile
// and its log file. Either may be overridden independently with -p and
// -l; otherwise each defaults to its own conventional path rather than
// sharing a run directory.
type Paths struct {
	PIDPath string
	LogPath string
}

// Resolve computes the effective pidfile and log paths given the -p and
// -l command-line overrides (either of which may be empty to accept the
// default), creating the parent directory of either resulting path if it
// doesn't already exist.
func Resolve(pidOverride, logOverride string) (Paths, error) {
	paths := Paths{
		PIDPath: pidOverride,
		LogPath: logOverride,
	}
	if paths.PIDPath == "" {
		paths.PIDPath = defaultPIDPath
	}
	if paths.LogPath == "" {
		paths.LogPath = defaultLogPath
	}

	for _, path := range []string{paths.PIDPath, paths.LogPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return Paths{}, fmt.Errorf("unable to create directory for %s: %w", path, err)
		}
	}
	return paths, nil
}
