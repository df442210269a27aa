package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gidget-io/gidget/pkg/account"
	"github.com/gidget-io/gidget/pkg/config"
	"github.com/gidget-io/gidget/pkg/logging"
	"github.com/gidget-io/gidget/pkg/mask"
)

func TestAssemblePathAppendsName(t *testing.T) {
	got, err := AssemblePath("/var/spool/incoming", "report.csv", 255)
	if err != nil {
		t.Fatalf("AssemblePath failed: %v", err)
	}
	if got != "/var/spool/incoming/report.csv" {
		t.Errorf("got %q", got)
	}
}

func TestAssemblePathMungesApostrophes(t *testing.T) {
	got, err := AssemblePath("/var/spool/incoming", "o'brien.txt", 255)
	if err != nil {
		t.Fatalf("AssemblePath failed: %v", err)
	}
	if !strings.Contains(got, "o%27brien.txt") {
		t.Errorf("expected apostrophe to be munged, got %q", got)
	}
}

func TestAssemblePathEmptyNameUsesBase(t *testing.T) {
	got, err := AssemblePath("/var/spool/incoming", "", 255)
	if err != nil {
		t.Fatalf("AssemblePath failed: %v", err)
	}
	if got != "/var/spool/incoming" {
		t.Errorf("got %q", got)
	}
}

func TestAssemblePathRejectsOverlong(t *testing.T) {
	_, err := AssemblePath("/var/spool/incoming", "report.csv", 4)
	if err == nil {
		t.Fatal("expected error for overlong assembled path")
	}
}

func TestComposeCommand(t *testing.T) {
	got := ComposeCommand("/usr/local/bin/notify", "/tmp/a.txt", mask.Create)
	want := "/usr/local/bin/notify '/tmp/a.txt' 0x00000100"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// fakeSendmail writes a script standing in for the mail transport, so
// Process's end-to-end mailing path can be exercised without a real
// MTA, matching the testing approach already used in pkg/mailer.
func fakeSendmail(t *testing.T, dir string) (command []string, capturePath string) {
	t.Helper()
	capturePath = filepath.Join(dir, "captured.eml")
	scriptPath := filepath.Join(dir, "fake-sendmail.sh")
	script := "#!/bin/sh\ncat > " + capturePath + "\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		t.Fatalf("unable to write fake transport: %v", err)
	}
	return []string{scriptPath}, capturePath
}

func TestProcessMailsNonEmptyOutput(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("dropping privileges to the current account requires root")
	}

	dir := t.TempDir()
	mailCommand, capturePath := fakeSendmail(t, dir)

	scriptPath := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\necho hit\n"), 0o755); err != nil {
		t.Fatalf("unable to write trick script: %v", err)
	}

	trick := config.Trick{
		Path:    dir,
		Script:  scriptPath,
		Account: "root",
		MailTo:  "ops@example.test",
		WatchID: 1,
	}

	w := &Worker{Logger: logging.New(os.Stdout, os.Stderr, nil, 0, false), MailCommand: mailCommand}
	result := w.Process(trick, "target.txt", mask.Create, 255)

	if !result.Mailed {
		t.Fatalf("expected output to be mailed, got %+v", result)
	}
	captured, err := os.ReadFile(capturePath)
	if err != nil {
		t.Fatalf("expected captured mail file: %v", err)
	}
	rootAccount, err := account.Lookup("root")
	if err != nil {
		t.Fatalf("unable to resolve root account for comparison: %v", err)
	}
	wantCommandLine := fmt.Sprintf("%s -c %s '%s/target.txt' 0x00000100:", rootAccount.Shell, scriptPath, dir)
	if !strings.Contains(string(captured), wantCommandLine) {
		t.Errorf("captured mail missing expected command line %q:\n%s", wantCommandLine, captured)
	}
}

func TestProcessSkipsMailWhenOutputEmpty(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("dropping privileges to the current account requires root")
	}

	dir := t.TempDir()
	mailCommand, capturePath := fakeSendmail(t, dir)

	scriptPath := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("unable to write trick script: %v", err)
	}

	trick := config.Trick{
		Path:    dir,
		Script:  scriptPath,
		Account: "root",
		MailTo:  "ops@example.test",
		WatchID: 2,
	}

	w := &Worker{Logger: logging.New(os.Stdout, os.Stderr, nil, 0, false), MailCommand: mailCommand}
	result := w.Process(trick, "", mask.CloseWrite, 255)

	if result.Mailed {
		t.Fatal("did not expect a mail to be sent for empty output")
	}
	if _, err := os.Stat(capturePath); err == nil {
		t.Fatal("did not expect a captured mail file")
	}
}

func TestProcessReportsUnknownAccount(t *testing.T) {
	trick := config.Trick{
		Path:    t.TempDir(),
		Script:  "/bin/true",
		Account: "no-such-gidget-test-account",
		MailTo:  "ops@example.test",
		WatchID: 3,
	}

	w := &Worker{Logger: logging.New(os.Stdout, os.Stderr, nil, 0, false)}
	result := w.Process(trick, "", mask.Create, 255)

	if result.ExitCode != -1 {
		t.Errorf("expected undetermined exit code, got %d", result.ExitCode)
	}
	if result.Mailed {
		t.Error("did not expect a mail to be sent")
	}
}
