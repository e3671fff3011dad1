package telemetry

import (
	"context"
	"testing"
)

func TestSnapshotCountsInstruments(t *testing.T) {
	p, err := Setup(Config{Version: "test"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()

	ctx := context.Background()
	p.CompilePass(ctx, "persistent", "save")
	p.CompilePass(ctx, "persistent", "manual")
	p.DiagnosticsPublished(ctx, 0)
	p.DiagnosticsPublished(ctx, 3)
	p.ProcessSpawn(ctx, true)
	p.MalformedLine(ctx)
	p.CompletionRequest(ctx, "member")
	p.BatchInvocation(ctx, 120, false)

	snap, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	checks := map[string]int64{
		"dpscript.compile.passes":                               2,
		"dpscript.compile.passes{mode=persistent,trigger=save}": 1,
		"dpscript.diagnostics.published":                        2,
		"dpscript.diagnostics.published{empty=true}":            1,
		"dpscript.compiler.spawns{outcome=ok}":                  1,
		"dpscript.compiler.malformed_lines":                     1,
		"dpscript.completion.requests{context=member}":          1,
		"dpscript.batch.duration":                               1,
		"dpscript.batch.duration.sum":                           120,
	}
	for key, want := range checks {
		if got := snap[key]; got != want {
			t.Errorf("%s = %d, want %d", key, got, want)
		}
	}
}

func TestNilProviderIsNoop(t *testing.T) {
	var p *Provider
	ctx := context.Background()
	p.CompilePass(ctx, "batch", "save")
	p.ProcessExit(ctx, 1, false)
	snap, err := p.Snapshot(ctx)
	if err != nil || len(snap) != 0 {
		t.Fatalf("expected empty snapshot, got %v err=%v", snap, err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
