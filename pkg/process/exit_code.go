package process

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

const (
	// posixShellInvalidCommandExitCode is the exit code POSIX shells
	// return when the command exists but cannot be executed, e.g. a
	// script without execute permission.
	posixShellInvalidCommandExitCode = 126

	// posixShellCommandNotFoundExitCode is the exit code POSIX shells
	// return when the command cannot be found at all. Scripts may also
	// exit with this code deliberately, so callers can only treat it as
	// a strong hint.
	posixShellCommandNotFoundExitCode = 127
)

// ExitCodeForProcessState extracts the exit code from a completed
// process' state.
func ExitCodeForProcessState(state *os.ProcessState) (int, error) {
	waitStatus, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return 0, errors.New("unable to access wait status")
	}
	return waitStatus.ExitStatus(), nil
}

// IsPOSIXShellInvalidCommand reports whether state represents an
// "invalid command" failure from a POSIX shell.
func IsPOSIXShellInvalidCommand(state *os.ProcessState) bool {
	code, err := ExitCodeForProcessState(state)
	return err == nil && code == posixShellInvalidCommandExitCode
}

// IsPOSIXShellCommandNotFound reports whether state represents a
// "command not found" failure from a POSIX shell.
func IsPOSIXShellCommandNotFound(state *os.ProcessState) bool {
	code, err := ExitCodeForProcessState(state)
	return err == nil && code == posixShellCommandNotFoundExitCode
}
