// Package process provides the subprocess plumbing shared by the
// worker, mailer, and daemonization code: exit-status extraction and
// classification, command location, and detached-process attributes.
package process

import "syscall"

// DetachedProcessAttributes returns the process attributes used to
// start a process detached from the daemon's session and controlling
// terminal. Setsid places the child in a fresh session, which detaches
// all three standard streams from any terminal; the narrower Noctty
// only covers standard input and fails outright when standard input
// isn't a terminal.
func DetachedProcessAttributes() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
