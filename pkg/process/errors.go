package process

import (
	"os/exec"
	"strings"
	"unicode/utf8"
)

// posixCommandNotFoundFragment appears in the error output of POSIX
// shells when a command is not found. Shells disagree on the
// capitalization of "command", so the leading letter is omitted.
const posixCommandNotFoundFragment = "ommand not found"

// OutputIsPOSIXCommandNotFound reports whether a process' error output
// looks like a POSIX shell's command-not-found diagnostic.
func OutputIsPOSIXCommandNotFound(output string) bool {
	return strings.Contains(output, posixCommandNotFoundFragment)
}

// ExtractExitErrorMessage returns the trimmed standard error text
// attached to an os/exec.ExitError, or an empty string if err is some
// other error or the captured output isn't valid UTF-8.
func ExtractExitErrorMessage(err error) string {
	exitErr, ok := err.(*exec.ExitError)
	if !ok || !utf8.Valid(exitErr.Stderr) {
		return ""
	}
	return strings.TrimSpace(string(exitErr.Stderr))
}
