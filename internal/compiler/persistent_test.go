package compiler

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

const echoCompiler = `root="$1"
while IFS= read -r line; do
  line=$(printf '%s' "$line" | tr -d '\r')
  case "$line" in
    /logerrors) echo "logging errors" ;;
    /compile*) echo "error:$root/main.dps|2-4|Unknown objective" >&2; echo "compiled ${line#/compile }" ;;
  esac
done
`

func TestPersistentCommandsProduceEvents(t *testing.T) {
	argv := writeScript(t, echoCompiler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event, 32)
	p := NewPersistent(ctx, PersistentConfig{Command: argv, Timeout: 2 * time.Second}, events)

	root := t.TempDir()
	if err := p.Start(root); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !p.Running() || p.ProcessID() == "" || p.PID() <= 0 {
		t.Fatal("expected running process")
	}
	if err := p.Send(LogErrors(TriggerSave)); err != nil {
		t.Fatalf("send logerrors: %v", err)
	}
	if err := p.Send(Compile(root+"/out", TriggerSave)); err != nil {
		t.Fatalf("send compile: %v", err)
	}

	var seen []Event
	stderr := waitEvent(t, events, EventStderr, &seen)
	if !strings.HasPrefix(stderr.Line, "error:"+root+"/main.dps|2-4|") {
		t.Fatalf("unexpected stderr line %q", stderr.Line)
	}
	var done []Command
	for _, ev := range seen {
		if ev.Kind == EventCommandDone {
			done = append(done, ev.Command)
		}
	}
	for len(done) < 2 {
		ev := waitEvent(t, events, EventCommandDone, nil)
		done = append(done, ev.Command)
	}
	if done[0].Kind != CmdLogErrors || done[1].Kind != CmdCompile {
		t.Fatalf("commands completed out of order: %v", done)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	exit := waitEvent(t, events, EventExit, nil)
	if p.HandleExit(exit) {
		t.Fatal("requested stop must not count as unexpected exit")
	}
	if err := p.Send(LogErrors(TriggerSave)); !errors.Is(err, ErrNoProcess) {
		t.Fatalf("expected ErrNoProcess after stop, got %v", err)
	}
}

func TestPersistentExitThenBackoff(t *testing.T) {
	argv := writeScript(t, "exit 3\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event, 8)
	p := NewPersistent(ctx, PersistentConfig{Command: argv, Timeout: time.Second}, events)
	now := time.Unix(5000, 0)
	p.now = func() time.Time { return now }

	if err := p.Start(t.TempDir()); err != nil {
		t.Fatalf("start: %v", err)
	}
	exit := waitEvent(t, events, EventExit, nil)
	if exit.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", exit.ExitCode)
	}
	if !p.HandleExit(exit) {
		t.Fatal("expected unexpected exit")
	}
	if p.Running() {
		t.Fatal("handle must be cleared after exit")
	}
	if err := p.EnsureRunning(); !errors.Is(err, ErrBackoff) {
		t.Fatalf("expected backoff, got %v", err)
	}
	now = now.Add(DefaultInitialBackoff)
	if err := p.EnsureRunning(); err != nil {
		t.Fatalf("respawn: %v", err)
	}
	if p.Spawns() != 2 {
		t.Fatalf("expected 2 spawns, got %d", p.Spawns())
	}
	waitEvent(t, events, EventExit, nil)
}

const floodOnEOFCompiler = `while IFS= read -r line; do :; done
i=0
while [ $i -lt 600 ]; do
  echo "out $i"
  echo "err $i" >&2
  i=$((i+1))
done
`

func TestPersistentStopWithUnreadOutput(t *testing.T) {
	argv := writeScript(t, floodOnEOFCompiler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Nobody reads events, as when the server loop itself is inside Stop.
	events := make(chan Event, 4)
	p := NewPersistent(ctx, PersistentConfig{Command: argv, Timeout: 2 * time.Second}, events)
	if err := p.Start(t.TempDir()); err != nil {
		t.Fatalf("start: %v", err)
	}

	start := time.Now()
	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("stop took %s, expected a prompt exit", elapsed)
	}
	if p.Running() {
		t.Fatal("compiler still running after stop")
	}
}

func TestPersistentSpawnFailure(t *testing.T) {
	events := make(chan Event, 1)
	p := NewPersistent(context.Background(), PersistentConfig{Command: []string{"/nonexistent/dpscript-compiler"}}, events)
	if err := p.Start(t.TempDir()); err == nil {
		t.Fatal("expected spawn error")
	}
	if p.Running() {
		t.Fatal("no process expected")
	}
	if err := p.Send(LogErrors(TriggerManual)); !errors.Is(err, ErrNoProcess) {
		t.Fatalf("expected ErrNoProcess, got %v", err)
	}
	if err := p.EnsureRunning(); !errors.Is(err, ErrBackoff) {
		t.Fatalf("expected backoff after failed spawn, got %v", err)
	}
}

func TestWriteWithTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer r.Close()
	err := writeWithTimeout(w, []byte("/logerrors\r\n"), 50*time.Millisecond)
	if !errors.Is(err, ErrWatchdog) {
		t.Fatalf("expected watchdog error, got %v", err)
	}
	_ = w.Close()

	r2, w2 := io.Pipe()
	go func() { _, _ = io.Copy(io.Discard, r2) }()
	if err := writeWithTimeout(w2, []byte("/logerrors\r\n"), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = w2.Close()
}
