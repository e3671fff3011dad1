// Package selector classifies a cursor position on a DPScript line into the
// selector completion context it belongs to.
//
// A selector is `@<target>` optionally followed by a bracketed parameter list
// and dot-suffixed member operations:
//
//	tp @e[type=pig,tag=farm].kill()
//
// Classification is a pure function of the line text, the cursor byte offset
// and the trigger character that caused the request. The line prefix is
// scanned left to right by a small state machine:
//
//	None ──@──▶ AfterAt ──[──▶ InBracket ──]──▶ AfterBracketClose
//
// Word and whitespace bytes keep or leave the current state as described on
// scanner.step. The rules are then evaluated on the final state and the
// offsets of the last `@`, `[` and `]` bytes seen.
package selector
