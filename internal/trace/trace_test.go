package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestStreamTracerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	span := Begin(tr, ScopeCompile, "compile", 0)
	Point(tr, ScopeRequest, "completion", "", span.ID())
	span.WithExtra("docs", "2").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ compile") || !strings.Contains(out, "← compile (ok) {docs=2}") {
		t.Fatalf("missing span lines:\n%s", out)
	}
	if strings.Contains(out, "completion") {
		t.Fatalf("request scope must be filtered at phase level:\n%s", out)
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	Point(tr, ScopeProcess, "process:spawn", "pid 42", 0)

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if decoded["scope"] != "process" || decoded["kind"] != "point" || decoded["detail"] != "pid 42" {
		t.Fatalf("unexpected event %v", decoded)
	}
}

func TestRingTracerWrapsAndDumps(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	Point(ring, ScopeSession, "a", "", 0)
	if events := ring.Snapshot(); len(events) != 1 || events[0].Name != "a" {
		t.Fatalf("unexpected partial snapshot %+v", events)
	}
	Point(ring, ScopeSession, "b", "", 0)
	Point(ring, ScopeSession, "c", "", 0)
	events := ring.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", events)
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("unexpected dump:\n%s", buf.String())
	}
}

func TestNewBothFindsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelError, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if FindRing(tr) == nil {
		t.Fatal("expected ring inside multi tracer")
	}
	off, err := New(Config{Level: LevelOff})
	if err != nil || off.Enabled() {
		t.Fatalf("expected disabled tracer, err=%v", err)
	}
}

func TestContextPropagation(t *testing.T) {
	ring := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatal("tracer not propagated")
	}
	span := Begin(FromContext(ctx), ScopeSession, "session", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() || span.ID() == 0 {
		t.Fatalf("span not propagated: %d vs %d", CurrentSpan(ctx), span.ID())
	}
	if FromContext(context.Background()) != Nop {
		t.Fatal("expected Nop without tracer")
	}
}

func TestParseHelpers(t *testing.T) {
	if lvl, err := ParseLevel("DETAIL"); err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel: %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if mode, err := ParseMode("both"); err != nil || mode != ModeBoth {
		t.Fatalf("ParseMode: %v %v", mode, err)
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
}
