package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"dpscript/internal/diagnostics"
	"dpscript/internal/project"
)

func fakeBatchCompiler(t *testing.T, body string) []string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "compiler.sh")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return []string{sh, path}
}

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

const reportingCompiler = `printf '{"errors":[{"file":"main.dps","line":4,"column":2,"message":"Unknown objective"},{"file":"main.dps","line":-1,"column":0,"message":"Expected }"}]}' > compilerOutput.json
`

func TestRunCheckPretty(t *testing.T) {
	noColor(t)
	folder := t.TempDir()
	cfg := project.Default()
	cfg.Compiler.BatchCommand = fakeBatchCompiler(t, reportingCompiler)

	var out, errOut bytes.Buffer
	count, err := runCheck(context.Background(), &out, &errOut, cfg, []string{folder}, checkOptions{format: "pretty"})
	if err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 errors, got %d", count)
	}
	text := out.String()
	for _, want := range []string{
		"main.dps:4:2: error: Unknown objective",
		"main.dps:end: error: Expected }",
		"1 folder(s) checked, 2 error(s)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
	if !strings.Contains(errOut.String(), "compiling") {
		t.Fatalf("expected progress on stderr, got %q", errOut.String())
	}
}

func TestRunCheckJSONReportsMissingReport(t *testing.T) {
	folder := t.TempDir()
	cfg := project.Default()
	cfg.Compiler.BatchCommand = fakeBatchCompiler(t, "exit 0\n")

	var out bytes.Buffer
	count, err := runCheck(context.Background(), &out, &bytes.Buffer{}, cfg, []string{folder}, checkOptions{format: "json", quiet: true})
	if err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no errors, got %d", count)
	}
	var payload checkPayload
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(payload.Folders) != 1 || !payload.Folders[0].NoReport || payload.Folders[0].ExitCode != 0 {
		t.Fatalf("unexpected folders %+v", payload.Folders)
	}
	if payload.Errors == nil || len(payload.Errors) != 0 {
		t.Fatalf("expected an empty error list, got %+v", payload.Errors)
	}
}

func TestCheckConfigUsesManifest(t *testing.T) {
	folder := t.TempDir()
	manifest := "[compiler]\nbatch_command = [\"dpsc\", \"--batch\"]\n"
	if err := os.WriteFile(filepath.Join(folder, project.ManifestName), []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	cfg, err := checkConfig("", folder)
	if err != nil {
		t.Fatalf("checkConfig: %v", err)
	}
	if strings.Join(cfg.Compiler.BatchCommand, " ") != "dpsc --batch" {
		t.Fatalf("unexpected batch command %v", cfg.Compiler.BatchCommand)
	}
}

func TestCheckFoldersRejectsFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.dps")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := checkFolders([]string{file}); err == nil {
		t.Fatal("expected an error for a file argument")
	}
	folders, err := checkFolders([]string{dir})
	if err != nil || len(folders) != 1 || folders[0] != dir {
		t.Fatalf("unexpected folders %v (%v)", folders, err)
	}
}

func TestFormatLocation(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "packs", "core")
	ce := diagnostics.CompilerError{File: filepath.Join(root, "fn", "tick.dps"), Line: 3, Column: 7}
	if got := formatLocation(root, ce); got != "fn/tick.dps:3:7:" {
		t.Fatalf("unexpected location %q", got)
	}
	outside := diagnostics.CompilerError{File: "/elsewhere/x.dps", Line: -1}
	if got := formatLocation(root, outside); got != "/elsewhere/x.dps:end:" {
		t.Fatalf("unexpected location %q", got)
	}
}

func TestReadUIMode(t *testing.T) {
	for input, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(input)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
	if err := applyColorMode("rainbow"); err == nil {
		t.Fatal("expected an error for an unknown color mode")
	}
}
