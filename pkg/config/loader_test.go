package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gidget-io/gidget/pkg/logging"
	"github.com/gidget-io/gidget/pkg/mask"
)

// writeConfig writes content to a temporary configuration file and
// returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gidget.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unable to write configuration: %v", err)
	}
	return path
}

// captureLogger returns a logger writing to the returned buffer, so
// tests can assert on the diagnostics emitted for discarded lines.
func captureLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New(&buf, &buf, nil, 0, false), &buf
}

func TestLoadSkipsBlankAndCommentLines(t *testing.T) {
	watched := t.TempDir()
	other := t.TempDir()
	content := strings.Join([]string{
		"",
		"# leading comment",
		watched + ":256:/bin/true:nobody:ops@example.test",
		"   ",
		"# another comment",
		other + ":3:/bin/false:daemon:alerts@example.test # trailing comment",
		"",
	}, "\n") + "\n"

	logger, _ := captureLogger()
	tricks, err := Load(writeConfig(t, content), logger)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(tricks) != 2 {
		t.Fatalf("expected 2 tricks, got %d", len(tricks))
	}
	if tricks[0].Path != watched || tricks[0].EventMask != mask.Create {
		t.Errorf("first trick mismatch: %+v", tricks[0])
	}
	if tricks[1].Path != other || tricks[1].EventMask != mask.Access|mask.Modify {
		t.Errorf("second trick mismatch: %+v", tricks[1])
	}
	if tricks[1].MailTo != "alerts@example.test" {
		t.Errorf("expected trailing comment to be stripped, got mail-to %q", tricks[1].MailTo)
	}
}

func TestLoadDiscardsMalformedLineAndContinues(t *testing.T) {
	watched := t.TempDir()
	content := strings.Join([]string{
		watched + ":256:/bin/true:nobody",
		watched + ":256:/bin/true:nobody:ops@example.test",
	}, "\n") + "\n"

	logger, buf := captureLogger()
	tricks, err := Load(writeConfig(t, content), logger)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(tricks) != 1 {
		t.Fatalf("expected malformed line to be discarded, got %d tricks", len(tricks))
	}
	if tricks[0].Line != 2 {
		t.Errorf("expected surviving trick from line 2, got line %d", tricks[0].Line)
	}
	if !strings.Contains(buf.String(), "discarding line 1") {
		t.Errorf("expected 'discarding line 1' diagnostic, got:\n%s", buf.String())
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	logger, _ := captureLogger()
	if _, err := Load(filepath.Join(t.TempDir(), "absent.conf"), logger); err == nil {
		t.Fatal("expected error for missing configuration file")
	}
}

func TestParseLineRejectsApostrophe(t *testing.T) {
	watched := t.TempDir()
	line := watched + ":256:/bin/o'brien:nobody:ops@example.test"
	_, err := parseLine(line, 1)
	if err == nil || !strings.Contains(err.Error(), "illegal character") {
		t.Errorf("expected illegal character error, got %v", err)
	}
}

func TestParseLineRejectsInvisibleCharacter(t *testing.T) {
	watched := t.TempDir()
	line := watched + ":256:/bin/true:nobody:ops\x01@example.test"
	_, err := parseLine(line, 1)
	if err == nil || !strings.Contains(err.Error(), "invisible character") {
		t.Errorf("expected invisible character error, got %v", err)
	}
}

func TestParseLineMaskValidation(t *testing.T) {
	watched := t.TempDir()
	tests := []struct {
		name string
		mask string
	}{
		{"non-digit", "0x100"},
		{"negative", "-1"},
		{"empty", ""},
		{"zero", "0"},
		{"overflow", "4294967296"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			line := fmt.Sprintf("%s:%s:/bin/true:nobody:ops@example.test", watched, test.mask)
			if _, err := parseLine(line, 1); err == nil {
				t.Errorf("expected mask %q to be rejected", test.mask)
			}
		})
	}
}

func TestParseLineFieldLengthBoundaries(t *testing.T) {
	watched := t.TempDir()

	line := func(script, account, mailTo string) string {
		return strings.Join([]string{watched, "256", script, account, mailTo}, ":")
	}

	atLimit := line(
		strings.Repeat("s", MaxScriptLength),
		strings.Repeat("a", MaxAccountLength),
		strings.Repeat("m", MaxMailToLength),
	)
	if _, err := parseLine(atLimit, 1); err != nil {
		t.Errorf("expected at-limit fields to be accepted: %v", err)
	}

	overlong := []struct {
		name string
		line string
	}{
		{"script", line(strings.Repeat("s", MaxScriptLength+1), "nobody", "ops@example.test")},
		{"account", line("/bin/true", strings.Repeat("a", MaxAccountLength+1), "ops@example.test")},
		{"mail-to", line("/bin/true", "nobody", strings.Repeat("m", MaxMailToLength+1))},
	}
	for _, test := range overlong {
		t.Run(test.name, func(t *testing.T) {
			if _, err := parseLine(test.line, 1); err == nil {
				t.Errorf("expected overlong %s field to be rejected", test.name)
			}
		})
	}
}

func TestParseLineRequiresExistingPath(t *testing.T) {
	line := filepath.Join(t.TempDir(), "absent") + ":256:/bin/true:nobody:ops@example.test"
	if _, err := parseLine(line, 1); err == nil {
		t.Error("expected nonexistent path to be rejected")
	}
}

func TestRunningMaxNameLength(t *testing.T) {
	watched := t.TempDir()
	max, err := RunningMaxNameLength([]Trick{{Path: watched}})
	if err != nil {
		t.Fatalf("RunningMaxNameLength failed: %v", err)
	}
	if max <= 0 {
		t.Errorf("expected positive name-length limit, got %d", max)
	}

	fallback, err := RunningMaxNameLength(nil)
	if err != nil {
		t.Fatalf("RunningMaxNameLength failed for empty input: %v", err)
	}
	if fallback != 255 {
		t.Errorf("expected 255 fallback for empty trick set, got %d", fallback)
	}
}
