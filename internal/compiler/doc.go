// Package compiler supervises the external DPScript compiler.
//
// Two strategies are provided. Persistent keeps one long-lived compiler
// process per session and drives it with line commands on stdin; its
// stderr carries streamed error lines. Batch runs one short-lived
// invocation per workspace folder, strictly one at a time, and reads the
// JSON report each invocation leaves behind.
//
// All process output is delivered as Event values on a channel owned by the
// caller, so a single loop can consume compiler activity alongside other
// input without sharing state across goroutines.
package compiler
