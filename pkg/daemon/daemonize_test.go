package daemon

import (
	"os"
	"testing"
)

func TestIsDaemonizedReflectsEnvVar(t *testing.T) {
	old, had := os.LookupEnv(daemonizedEnvVar)
	defer func() {
		if had {
			os.Setenv(daemonizedEnvVar, old)
		} else {
			os.Unsetenv(daemonizedEnvVar)
		}
	}()

	os.Unsetenv(daemonizedEnvVar)
	if IsDaemonized() {
		t.Error("expected IsDaemonized to be false without the marker set")
	}

	os.Setenv(daemonizedEnvVar, "1")
	if !IsDaemonized() {
		t.Error("expected IsDaemonized to be true with the marker set")
	}
}

func TestFinalizeChangesDirectory(t *testing.T) {
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("unable to get working directory: %v", err)
	}
	defer os.Chdir(original)

	Finalize()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("unable to get working directory: %v", err)
	}
	if wd != "/" {
		t.Errorf("expected working directory to be /, got %s", wd)
	}
}
