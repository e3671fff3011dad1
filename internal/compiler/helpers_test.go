package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

// writeScript stores a fake compiler script and returns the argv that runs it.
func writeScript(t *testing.T, body string) []string {
	t.Helper()
	sh := requireShell(t)
	path := filepath.Join(t.TempDir(), "fake-compiler.sh")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return []string{sh, path}
}

// waitEvent returns the first event of kind, failing after timeout.
func waitEvent(t *testing.T, events <-chan Event, kind EventKind, seen *[]Event) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if seen != nil {
				*seen = append(*seen, ev)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
			return Event{}
		}
	}
}
