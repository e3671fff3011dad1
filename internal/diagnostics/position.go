package diagnostics

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ResolvePosition maps a compiler position onto text. Line -1 resolves to
// the position of the last character of the document; any other line is
// made zero-based and clamped at 0. The column is used as given, except
// that negative columns become 0.
func ResolvePosition(text string, line, column int) Position {
	if line == -1 {
		return PositionAt(text, lastCharOffset(text))
	}
	return Position{Line: max(line-1, 0), Character: max(column, 0)}
}

// lastCharOffset is the byte offset where the final rune of text begins.
func lastCharOffset(text string) int {
	if text == "" {
		return 0
	}
	_, size := utf8.DecodeLastRuneInString(text)
	return len(text) - size
}

// PositionAt converts a byte offset into a line and UTF-16 character
// position.
func PositionAt(text string, offset int) Position {
	offset = min(max(offset, 0), len(text))
	prefix := text[:offset]
	line := strings.Count(prefix, "\n")
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	units := 0
	for _, r := range prefix[lineStart:] {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
	}
	return Position{Line: line, Character: units}
}
