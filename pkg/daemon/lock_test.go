package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gidget-io/gidget/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(os.Stdout, os.Stderr, nil, 0, false)
}

func TestLockCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gidget.pid")

	lock, err := AcquireLock(path, testLogger())
	if err != nil {
		t.Fatalf("unable to acquire lock: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unable to read pidfile: %v", err)
	}
	if strings.TrimSpace(string(contents)) != strconv.Itoa(os.Getpid()) {
		t.Errorf("pidfile contents %q did not match pid %d", contents, os.Getpid())
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("unable to release lock: %v", err)
	}
}

func TestLockDuplicateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gidget.pid")

	lock, err := AcquireLock(path, testLogger())
	if err != nil {
		t.Fatalf("unable to acquire lock: %v", err)
	}
	defer lock.Release()

	if _, err := AcquireLock(path, testLogger()); err == nil {
		t.Fatal("expected second lock acquisition to fail")
	}
}
