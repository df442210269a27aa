// Package worker runs the per-event execution pipeline: given a decoded
// event and the trick it fired against, it resolves the target account,
// drops privileges, execs the trick's script through the account's
// login shell, captures combined output, and hands any non-empty output
// to the mailer.
//
// Go's runtime cannot safely call a raw fork(2) mid-process (a forked
// copy of a multi-threaded Go process is left with exactly one live
// thread but all of the runtime's bookkeeping for the others), so the
// daemon-forks-a-worker-forks-a-grandchild topology of classic
// event-exec daemons has no literal equivalent here. Each worker
// instead runs as a goroutine (one per event, so workers may complete
// in any order) that drives a single os/exec.Cmd: os/exec performs its
// own internal fork-and-exec in a freshly cloned child before this
// process's other goroutines are ever visible to it, which gives the
// same fd-cleanup and address-space isolation. Privilege drop is
// requested through SysProcAttr.Credential (applied by the kernel to
// the new process image atomically) rather than an in-process
// setgid(2)/setuid(2) pair, since calling those directly from a
// multi-threaded Go process only affects the calling OS thread.
package worker

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/gidget-io/gidget/pkg/account"
	"github.com/gidget-io/gidget/pkg/config"
	"github.com/gidget-io/gidget/pkg/environment"
	"github.com/gidget-io/gidget/pkg/logging"
	"github.com/gidget-io/gidget/pkg/mailer"
	"github.com/gidget-io/gidget/pkg/mask"
	"github.com/gidget-io/gidget/pkg/process"
)

// maxCommandLength bounds the composed "<script> '<path>' <mask>"
// command line. POSIX only guarantees {LINE_MAX} (2048 bytes); gidget
// doubles it for the same reason pkg/config does.
const maxCommandLength = 4096

// posixShellCommandNotFoundExitCode is the exit code POSIX shells
// return when the command isn't found; gidget can't distinguish that
// from a script that deliberately exits 127, hence "ambiguous result"
// in the log.
const posixShellCommandNotFoundExitCode = 127

// AssemblePath concatenates a trick's watched path with an event's name
// field, munging every literal apostrophe to %27 so the result can be
// safely single-quoted in the composed command line. name may be empty,
// in which case the trick's own path is the target. The result must not
// exceed maxNameLength.
func AssemblePath(base, name string, maxNameLength int) (string, error) {
	munged := strings.ReplaceAll(name, "'", "%27")

	assembled := base
	if munged != "" {
		assembled = strings.TrimRight(base, "/") + "/" + munged
	}

	if len(assembled) > maxNameLength {
		return "", fmt.Errorf("assembled path exceeds maximum name length (%d)", maxNameLength)
	}
	return assembled, nil
}

// ComposeCommand renders the literal command line handed to the shell:
// <script> '<assembled-path>' <mask-in-hex-0x-prefixed-zero-padded-to-8>.
func ComposeCommand(script, assembledPath string, m mask.Mask) string {
	return fmt.Sprintf("%s '%s' %s", script, assembledPath, m.HexString())
}

// Result summarizes a completed worker invocation for logging and
// testing.
type Result struct {
	// ExitCode is the script's exit status, or -1 if it could not be
	// determined. The worker is a goroutine rather than a process, so
	// the status is logged and returned instead of becoming a process
	// exit code.
	ExitCode int
	// Mailed indicates whether a mail message was sent.
	Mailed bool
	// OutputBytes is the number of bytes of combined output captured.
	OutputBytes int
}

// Worker runs the per-event execution pipeline for a set of tricks
// sharing a mail transport and logger.
type Worker struct {
	Logger      *logging.Logger
	MailCommand []string
}

// Process runs trick's script against an event whose name field is
// eventName and whose triggered-classes bitmap is eventMask. It never
// panics and never terminates the daemon process: every failure here is
// fatal for this worker only, logged and returned, with the daemon
// continuing to dispatch subsequent events.
func (w *Worker) Process(trick config.Trick, eventName string, eventMask mask.Mask, maxNameLength int) Result {
	logger := w.Logger

	assembledPath, err := AssemblePath(trick.Path, eventName, maxNameLength)
	if err != nil {
		logger.Errorf("watch %d: %v", trick.WatchID, err)
		return Result{ExitCode: -1}
	}

	acct, err := account.Lookup(trick.Account)
	if err != nil {
		logger.Errorf("watch %d: unable to resolve account %q: %v", trick.WatchID, trick.Account, err)
		return Result{ExitCode: -1}
	}

	command := ComposeCommand(trick.Script, assembledPath, eventMask)
	if len(command) > maxCommandLength {
		logger.Errorf("watch %d: composed command exceeds maximum line length", trick.WatchID)
		return Result{ExitCode: -1}
	}

	shell := acct.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell, "-c", command)
	cmd.Dir = acct.HomeDir
	cmd.Env = environment.Format(scriptEnvironment(acct))
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{
			Uid: acct.UID,
			Gid: acct.GID,
		},
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()

	exitCode := -1
	if cmd.ProcessState != nil {
		if code, codeErr := process.ExitCodeForProcessState(cmd.ProcessState); codeErr == nil {
			exitCode = code
		}
	}

	switch {
	case runErr != nil && cmd.ProcessState == nil:
		if detail := process.ExtractExitErrorMessage(runErr); detail != "" {
			logger.Errorf("watch %d: unable to execute %q as %q: %v (%s)", trick.WatchID, trick.Script, trick.Account, runErr, detail)
		} else {
			logger.Errorf("watch %d: unable to execute %q as %q: %v", trick.WatchID, trick.Script, trick.Account, runErr)
		}
	case exitCode == posixShellCommandNotFoundExitCode:
		if process.OutputIsPOSIXCommandNotFound(output.String()) {
			logger.Errorf("watch %d: ambiguous result (exit %d): %q does not exist or is not executable", trick.WatchID, exitCode, trick.Script)
		} else {
			logger.Errorf("watch %d: ambiguous result (exit %d) running %q", trick.WatchID, exitCode, trick.Script)
		}
	case exitCode == 0:
		logger.Debugf("watch %d: %q completed successfully", trick.WatchID, trick.Script)
	default:
		logger.Errorf("watch %d: %q failed with status %d", trick.WatchID, trick.Script, exitCode)
	}

	result := Result{ExitCode: exitCode, OutputBytes: output.Len()}

	if output.Len() == 0 {
		return result
	}

	msg := mailer.Message{
		Account:     trick.Account,
		MailTo:      trick.MailTo,
		ObjectPath:  assembledPath,
		WatchID:     trick.WatchID,
		EventMask:   eventMask,
		CommandLine: fmt.Sprintf("%s -c %s", shell, command),
		Output:      output.Bytes(),
		Timestamp:   time.Now(),
	}
	if err := mailer.Send(w.MailCommand, msg); err != nil {
		logger.Errorf("watch %d: unable to mail script output: %v", trick.WatchID, err)
		return result
	}

	logger.Debugf("watch %d: mailed %d bytes of output to %s", trick.WatchID, output.Len(), trick.MailTo)
	result.Mailed = true
	return result
}

// scriptEnvironment builds the environment a trick's script runs under:
// the daemon's own environment (for PATH and similar inherited
// settings) with the identity-specific variables overridden to match
// the account the script is about to run as, so a script can't
// mistakenly observe the daemon's own HOME or USER.
func scriptEnvironment(acct *account.Account) map[string]string {
	env := environment.CopyCurrent()
	env["HOME"] = acct.HomeDir
	env["USER"] = acct.Name
	env["LOGNAME"] = acct.Name
	env["SHELL"] = acct.Shell
	return env
}
