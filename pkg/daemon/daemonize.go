package daemon

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/gidget-io/gidget/pkg/process"
)

// daemonizedEnvVar marks a re-exec'd child as already detached, so that
// a restart via Detach doesn't recurse. Go cannot fork(2) a running
// multi-threaded process and continue executing in just the child
// (doing so leaves the runtime's per-thread bookkeeping for every
// thread but the calling one in an invalid state), so detachment is
// reached instead by re-executing the same binary as a new, fully
// initialized process placed into its own session.
const daemonizedEnvVar = "GIDGET_DAEMONIZED"

// IsDaemonized reports whether the calling process is the detached
// child rather than the original foreground invocation.
func IsDaemonized() bool {
	return os.Getenv(daemonizedEnvVar) == "1"
}

// Detach re-executes the current binary with its original arguments in
// a new session (via process.DetachedProcessAttributes, which sets
// Setsid) and marks the child as daemonized. On success, the detached
// child is running independently and the caller should exit immediately
// with status 0; on failure, the caller should report the returned
// error and exit non-zero instead.
func Detach() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("unable to determine executable path: %w", err)
	}

	cmd := exec.Command(self, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonizedEnvVar+"=1")
	cmd.SysProcAttr = process.DetachedProcessAttributes()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("unable to start detached daemon: %w", err)
	}

	return cmd.Process.Release()
}

// Finalize applies the remaining process-wide daemonization steps that
// must run inside the already-detached child: a 027 umask so the
// pidfile and log file it creates are not world-readable (their
// requested 0644 mode becomes 0640), and a chdir to the
// filesystem root so the daemon never pins whatever directory it
// happened to start in and doesn't block that directory's unmount.
func Finalize() {
	unix.Umask(0o027)
	os.Chdir("/")
}
