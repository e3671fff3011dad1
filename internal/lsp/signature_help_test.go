package lsp

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"dpscript/internal/project"
)

func TestSignatureHelpActiveParam(t *testing.T) {
	line := "@a.titleTimes(10, "
	help := buildSignatureHelp(line, len(line))
	if help == nil || len(help.Signatures) != 1 {
		t.Fatalf("expected one signature, got %+v", help)
	}
	sig := help.Signatures[0]
	if sig.Label != "titleTimes(fadeIn, stay, fadeOut)" {
		t.Fatalf("unexpected label %q", sig.Label)
	}
	if help.ActiveParameter != 1 {
		t.Fatalf("expected active parameter 1, got %d", help.ActiveParameter)
	}
	if len(sig.Parameters) != 3 {
		t.Fatalf("expected 3 parameters, got %d", len(sig.Parameters))
	}
	offsets, ok := sig.Parameters[1].Label.([2]int)
	if !ok || sig.Label[offsets[0]:offsets[1]] != "stay" {
		t.Fatalf("unexpected parameter label %v", sig.Parameters[1].Label)
	}
	if !strings.Contains(sig.Documentation.Value, "- `stay`: ticks to stay on screen") {
		t.Fatalf("missing parameter list in %q", sig.Documentation.Value)
	}
}

func TestSignatureHelpParamNameInsideMemberName(t *testing.T) {
	line := "@p.effect("
	help := buildSignatureHelp(line, len(line))
	if help == nil || len(help.Signatures) != 1 {
		t.Fatalf("expected signature, got %+v", help)
	}
	offsets, ok := help.Signatures[0].Parameters[0].Label.([2]int)
	if !ok || offsets[0] != len("effect(") {
		t.Fatalf("parameter must point inside the argument list, got %v", help.Signatures[0].Parameters[0].Label)
	}
}

func TestSignatureHelpNestedAndQuoted(t *testing.T) {
	line := `@a.give(stone{a:"x,y"}, `
	help := buildSignatureHelp(line, len(line))
	if help == nil || help.ActiveParameter != 1 {
		t.Fatalf("expected active parameter 1, got %+v", help)
	}
	line = "@a.give(stone, 1) say("
	help = buildSignatureHelp(line, len(line))
	if help == nil || len(help.Signatures) != 0 {
		t.Fatalf("expected empty result for unknown member, got %+v", help)
	}
}

func TestSignatureHelpClampsActiveParam(t *testing.T) {
	line := "@s.tp(1, 2, 3"
	help := buildSignatureHelp(line, len(line))
	if help == nil || help.ActiveParameter != 0 {
		t.Fatalf("expected clamped active parameter, got %+v", help)
	}
}

func TestSignatureHelpOutsideCall(t *testing.T) {
	if help := buildSignatureHelp("@s.kill()", len("@s.kill()")); help != nil {
		t.Fatalf("expected nil outside a call, got %+v", help)
	}
	if help := buildSignatureHelp("say hi", 3); help != nil {
		t.Fatalf("expected nil without parenthesis, got %+v", help)
	}
}

func TestSignatureHelpUnknownMember(t *testing.T) {
	for _, line := range []string{"@s.teleport(", "@s.nbt(", "(", "foo ("} {
		help := buildSignatureHelp(line, len(line))
		if help == nil || help.Signatures == nil || len(help.Signatures) != 0 {
			t.Fatalf("%q: expected explicit empty result, got %+v", line, help)
		}
	}
}

func TestHandleSignatureHelpEncodesEmptySignatures(t *testing.T) {
	server, out := newTestServer(t, "", project.Default())
	uri := openDoc(t, server, filepath.Join(t.TempDir(), "main.dps"), "@s.teleport(")
	params := signatureHelpParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     position{Line: 0, Character: len("@s.teleport(")},
	}
	if err := server.handleSignatureHelp(&rpcMessage{ID: json.RawMessage("3"), Params: rawParams(t, params)}); err != nil {
		t.Fatalf("signature help: %v", err)
	}
	msgs := readAll(t, out)
	if len(msgs) != 1 || !strings.Contains(string(msgs[0].Result), `"signatures":[]`) {
		t.Fatalf("unexpected response %s", msgs[0].Result)
	}
}
