package lsp

import "testing"

func TestLineAtReturnsByteCursor(t *testing.T) {
	text := "tick {\r\n  say \"é\" @a.\n}"
	line, cursor := lineAt(text, position{Line: 1, Character: 13})
	if line != "  say \"é\" @a." {
		t.Fatalf("unexpected line %q", line)
	}
	if cursor != len("  say \"é\" @a.") {
		t.Fatalf("expected byte cursor %d, got %d", len("  say \"é\" @a."), cursor)
	}

	line, cursor = lineAt(text, position{Line: 0, Character: 40})
	if line != "tick {" || cursor != len("tick {") {
		t.Fatalf("expected clamped cursor on first line, got %q %d", line, cursor)
	}
}

func TestLineAtPastEnd(t *testing.T) {
	line, cursor := lineAt("say hi", position{Line: 5, Character: 0})
	if line != "say hi" || cursor != 6 {
		t.Fatalf("unexpected %q %d", line, cursor)
	}
}

func TestUTF16Len(t *testing.T) {
	if n := utf16Len("a😀é"); n != 4 {
		t.Fatalf("expected 4 code units, got %d", n)
	}
}

func TestApplyChangesFullReplace(t *testing.T) {
	got := applyChanges("old", []textDocumentContentChangeEvent{{Text: "new text"}})
	if got != "new text" {
		t.Fatalf("unexpected text %q", got)
	}
}
