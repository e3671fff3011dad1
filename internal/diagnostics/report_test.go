package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeReportWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"errors":[{"file":"data/main.dps","line":3,"column":5,"message":"bad"}],"suggestions":[]}`)...)
	report, err := DecodeReport(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	folder := t.TempDir()
	errs, err := report.CompilerErrors(folder)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	want := filepath.Join(folder, "data", "main.dps")
	if errs[0].File != want || errs[0].Line != 3 || errs[0].Column != 5 || errs[0].Message != "bad" {
		t.Fatalf("unexpected error: %+v", errs[0])
	}
}

func TestReportKeepsAbsolutePaths(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x.dps")
	report := &Report{Errors: []ReportEntry{{File: abs, Line: -1, Column: 0, Message: "eof"}}}
	errs, err := report.CompilerErrors("/elsewhere")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if errs[0].File != abs || errs[0].Line != -1 {
		t.Fatalf("unexpected error: %+v", errs[0])
	}
}

func TestReportRejectsFractionalPositions(t *testing.T) {
	report := &Report{Errors: []ReportEntry{
		{File: "a.dps", Line: 1.5, Column: 0, Message: "frac"},
		{File: "a.dps", Line: 2, Column: 1, Message: "ok"},
	}}
	errs, err := report.CompilerErrors("")
	if err == nil {
		t.Fatal("expected conversion error")
	}
	if len(errs) != 1 || errs[0].Message != "ok" {
		t.Fatalf("expected only the integral entry, got %+v", errs)
	}
}

func TestReadReportMissing(t *testing.T) {
	_, err := ReadReport(filepath.Join(t.TempDir(), ReportFile))
	if !errors.Is(err, ErrNoReport) || !IsMissingReport(err) {
		t.Fatalf("expected ErrNoReport, got %v", err)
	}
}

func TestReadReportFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), ReportFile)
	if err := os.WriteFile(path, []byte(`{"errors":[]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	report, err := ReadReport(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("expected no errors, got %d", len(report.Errors))
	}
}

func TestReadReportInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ReportFile)
	if err := os.WriteFile(path, []byte(`{"errors":`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadReport(path); err == nil || IsMissingReport(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
