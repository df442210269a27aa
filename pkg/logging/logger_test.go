package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLineFormat(t *testing.T) {
	var out bytes.Buffer
	logger := New(&out, &out, nil, 0, false)
	logger.Info("hello")

	line := strings.TrimRight(out.String(), "\n")
	if !strings.HasPrefix(line, "gidget[") {
		t.Fatalf("line missing gidget[pid] prefix: %q", line)
	}
	if !strings.HasSuffix(line, "hello") {
		t.Fatalf("line missing text suffix: %q", line)
	}
}

func TestLogEmptyTextFallback(t *testing.T) {
	var out bytes.Buffer
	logger := New(&out, &out, nil, 0, false)

	logger.Info("")
	if !strings.Contains(out.String(), missingLogString) {
		t.Errorf("expected missing-log-string literal, got %q", out.String())
	}

	out.Reset()
	logger.logError("")
	if !strings.Contains(out.String(), skyIsFalling) {
		t.Errorf("expected sky-is-falling literal, got %q", out.String())
	}
}

func TestNilLoggerDiscardsWithoutPanicking(t *testing.T) {
	var logger *Logger
	logger.Info("should be discarded silently")
	logger.Sublogger("x").Info("still silent")
}

func TestSubloggerPrefix(t *testing.T) {
	var out bytes.Buffer
	root := New(&out, &out, nil, 0, false)
	sub := root.Sublogger("watch").Sublogger("registry")
	sub.Info("registered")

	if !strings.Contains(out.String(), "[watch.registry] registered") {
		t.Errorf("expected dotted prefix in line, got %q", out.String())
	}
}

func TestVerboseGating(t *testing.T) {
	var out bytes.Buffer
	quiet := New(&out, &out, nil, 0, false)
	quiet.Debug("should not appear")
	if out.Len() != 0 {
		t.Errorf("expected no output with verbose disabled, got %q", out.String())
	}

	loud := New(&out, &out, nil, 0, true)
	loud.Debug("should appear")
	if !strings.Contains(out.String(), "should appear") {
		t.Errorf("expected debug output with verbose enabled, got %q", out.String())
	}
}
