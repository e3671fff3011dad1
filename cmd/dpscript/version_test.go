package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"dpscript/internal/version"
)

func TestRenderVersionJSON(t *testing.T) {
	origCommit, origDate := version.GitCommit, version.BuildDate
	version.GitCommit, version.BuildDate = "abc123", ""
	t.Cleanup(func() { version.GitCommit, version.BuildDate = origCommit, origDate })

	var out bytes.Buffer
	if err := renderVersionJSON(&out, versionOptions{showHash: true, showDate: true}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "dpscript" || payload.Version != version.Version {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.GitCommit != "abc123" || payload.BuildDate != "unknown" {
		t.Fatalf("unexpected metadata %+v", payload)
	}
}
