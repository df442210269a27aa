// Package mailer composes an RFC-5322 message from a worker's captured
// script output and streams it into a local, sendmail-compatible mail
// transport agent.
package mailer

import (
	"bytes"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/gidget-io/gidget/pkg/mask"
	"github.com/gidget-io/gidget/pkg/process"
)

// candidateTransportDirectories lists the locations a sendmail-compatible
// binary is conventionally installed at across Linux distributions, in
// the order they are searched.
var candidateTransportDirectories = []string{"/usr/lib", "/usr/sbin", "/usr/bin"}

// DefaultCommand is the sendmail-compatible transport invocation. The
// binary's location varies by distribution, so it is located
// with process.FindCommand against candidateTransportDirectories rather
// than hard-coded to a single path; if none of them carry a "sendmail"
// binary, the conventional /usr/lib/sendmail path is used as a last
// resort so the resulting error (rather than a silent no-op) comes from
// actually trying to run it.
var DefaultCommand = defaultCommand()

func defaultCommand() []string {
	path, err := process.FindCommand("sendmail", candidateTransportDirectories)
	if err != nil {
		path = "/usr/lib/sendmail"
	}
	return []string{path, "-Fgidget", "-odi", "-oem", "-oi", "-t"}
}

// Message is everything needed to compose one outgoing mail message.
type Message struct {
	// Account is the local login name the script ran as, embedded in
	// the From header.
	Account string
	// MailTo is the opaque recipient string from the trick, passed
	// verbatim into the To header.
	MailTo string
	// ObjectPath is the assembled target path, used in both the Subject
	// and the X-gidget-object header.
	ObjectPath string
	// WatchID is the trick's watch descriptor, embedded in
	// X-gidget-watch.
	WatchID int
	// EventMask is the decoded event's triggered-classes bitmap,
	// embedded in X-gidget-mask as a decimal value.
	EventMask mask.Mask
	// CommandLine is the exact "<shell> -c <command>" string the worker
	// ran, echoed as the first line of the body.
	CommandLine string
	// Output is the script's captured combined standard output/error,
	// streamed verbatim after the command-line echo line.
	Output []byte
	// Timestamp is used to render the Date header; tests supply a fixed
	// value so message bytes are reproducible.
	Timestamp time.Time
}

// compose renders the full RFC-5322 message: the fixed header block, a
// mandatory blank line, the command-line echo, a blank line, and the
// verbatim captured output.
func compose(msg Message) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s (gidget)\n", msg.Account)
	fmt.Fprintf(&buf, "To: %s\n", msg.MailTo)
	fmt.Fprintf(&buf, "Subject: gidget event: %s\n", msg.ObjectPath)
	fmt.Fprintf(&buf, "Date: %s\n", msg.Timestamp.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Auto-Submitted: auto-generated\n")
	fmt.Fprintf(&buf, "X-gidget-object: %s\n", msg.ObjectPath)
	fmt.Fprintf(&buf, "X-gidget-watch: %d\n", msg.WatchID)
	fmt.Fprintf(&buf, "X-gidget-mask: %d\n", uint32(msg.EventMask))
	fmt.Fprintf(&buf, "Message-Id: <%s@gidget>\n", uuid.NewString())
	buf.WriteByte('\n')

	fmt.Fprintf(&buf, "%s:\n\n", msg.CommandLine)
	buf.Write(msg.Output)

	return buf.Bytes()
}

// Send streams the composed message into command (argv[0] plus
// arguments), which must be a sendmail-compatible program reading
// RFC-5322 on standard input. If command is empty, DefaultCommand is
// used.
func Send(command []string, msg Message) error {
	if len(command) == 0 {
		command = DefaultCommand
	}

	cmd := exec.Command(command[0], command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("unable to open mail transport pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("unable to start mail transport: %w", err)
	}

	body := compose(msg)
	_, writeErr := stdin.Write(body)
	closeErr := stdin.Close()

	waitErr := cmd.Wait()

	if writeErr != nil {
		return fmt.Errorf("unable to write mail message: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("unable to close mail transport pipe: %w", closeErr)
	}
	if waitErr != nil {
		return fmt.Errorf("mail transport exited abnormally: %w", waitErr)
	}
	return nil
}
