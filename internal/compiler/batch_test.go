package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// reportCompiler writes a report naming main.dps inside the compiled folder,
// unless the folder contains a "clean" marker.
const reportCompiler = `folder="$1"
echo "compiling $folder"
if [ -f "$folder/clean" ]; then
  exit 0
fi
printf '{"errors":[{"file":"main.dps","line":3,"column":1,"message":"bad"}],"suggestions":[]}' > compilerOutput.json
`

func TestBatchRunsFoldersSequentially(t *testing.T) {
	argv := writeScript(t, reportCompiler)
	a, b := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(b, "clean"), nil, 0o600); err != nil {
		t.Fatalf("marker: %v", err)
	}
	// A stale report must not be attributed to the clean folder.
	if err := os.WriteFile(filepath.Join(b, "compilerOutput.json"), []byte(`{"errors":[{"file":"old.dps","line":1,"column":0,"message":"stale"}]}`), 0o600); err != nil {
		t.Fatalf("stale report: %v", err)
	}

	var mu sync.Mutex
	var order []string
	batch := NewBatch(BatchConfig{Command: argv, Timeout: 5 * time.Second}, nil)
	batch.OnProgress = func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		state := "start"
		if p.Done {
			state = "done"
		}
		order = append(order, state+":"+filepath.Base(p.Folder))
	}

	res, err := batch.Run(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", res.Errors)
	}
	if res.Errors[0].File != filepath.Join(a, "main.dps") || res.Errors[0].Line != 3 {
		t.Fatalf("unexpected error %+v", res.Errors[0])
	}
	if !res.Folders[1].NoReport || res.Folders[1].Errors != 0 {
		t.Fatalf("clean folder must have no report: %+v", res.Folders[1])
	}
	want := []string{"start:" + filepath.Base(a), "done:" + filepath.Base(a), "start:" + filepath.Base(b), "done:" + filepath.Base(b)}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestBatchWatchdogKillsInvocation(t *testing.T) {
	argv := writeScript(t, "exec sleep 30\n")
	batch := NewBatch(BatchConfig{Command: argv, Timeout: 100 * time.Millisecond}, nil)
	start := time.Now()
	res, err := batch.Run(context.Background(), []string{t.TempDir()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("watchdog did not stop the invocation")
	}
	if res.Folders[0].Err == nil || !strings.Contains(res.Folders[0].Err.Error(), "watchdog") {
		t.Fatalf("expected watchdog error, got %v", res.Folders[0].Err)
	}
}

func TestBatchStartDeliversEvent(t *testing.T) {
	argv := writeScript(t, reportCompiler)
	events := make(chan Event, 1)
	batch := NewBatch(BatchConfig{Command: argv}, nil)
	batch.Start(context.Background(), []string{t.TempDir()}, events)
	ev := waitEvent(t, events, EventBatchDone, nil)
	if ev.Err != nil || ev.Batch == nil || len(ev.Batch.Errors) != 1 {
		t.Fatalf("unexpected batch event %+v", ev)
	}
}

func TestBatchSerializesOverlappingRuns(t *testing.T) {
	argv := writeScript(t, "sleep 0.2\n")
	batch := NewBatch(BatchConfig{Command: argv, Timeout: 5 * time.Second}, nil)
	var mu sync.Mutex
	running, maxRunning := 0, 0
	batch.OnProgress = func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Done {
			running--
			return
		}
		running++
		maxRunning = max(maxRunning, running)
	}
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = batch.Run(context.Background(), []string{t.TempDir()})
		}()
	}
	wg.Wait()
	if maxRunning != 1 {
		t.Fatalf("expected at most one invocation in flight, saw %d", maxRunning)
	}
}
