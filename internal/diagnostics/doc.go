// Package diagnostics turns external compiler output into per-document
// diagnostic sets.
//
// The compiler reports errors in two shapes: single `error:` lines streamed
// on stderr by the persistent process, and a JSON report written by one-shot
// batch invocations. Both are parsed into CompilerError values, resolved
// against the current text of open documents and published through a
// Translator, which owns the per-pass accumulator and the last published
// set for every document.
package diagnostics
