// Package trace provides a tracing subsystem for the DPScript language
// server.
//
// Tracing records session lifecycle, compile passes, compiler process
// activity and individual requests, to help diagnose slow compiles and
// stuck compiler processes.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	dpscript lsp --trace=lsp.ndjson --trace-level=detail
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer dumped on failure
//   - ModeBoth: stream and ring side by side
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only ring dumps on failure
//   - LevelPhase: session and compile pass boundaries
//   - LevelDetail: compiler process events
//   - LevelDebug: everything including individual requests
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeCompile, "compile", 0)
//	defer span.End("")
package trace
