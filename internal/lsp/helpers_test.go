package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"dpscript/internal/fileuri"
	"dpscript/internal/project"
)

// newTestServer returns a server writing to out, already configured for
// the given workspace folder.
func newTestServer(t *testing.T, folder string, cfg project.Config) (*Server, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	server := NewServer(bytes.NewReader(nil), &out, ServerOptions{Config: &cfg, Log: io.Discard})
	folders := []string{}
	if folder != "" {
		folders = append(folders, folder)
	}
	server.session.configure(folder, folders, cfg)
	return server, &out
}

func rawParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return data
}

func openDoc(t *testing.T, server *Server, path, text string) string {
	t.Helper()
	uri := fileuri.FromPath(path)
	params := didOpenTextDocumentParams{TextDocument: textDocumentItem{URI: uri, Version: 1, Text: text}}
	if err := server.handleDidOpen(&rpcMessage{Method: "textDocument/didOpen", Params: rawParams(t, params)}); err != nil {
		t.Fatalf("didOpen: %v", err)
	}
	return uri
}

// readAll decodes every framed message written to out.
func readAll(t *testing.T, out *bytes.Buffer) []rpcMessage {
	t.Helper()
	reader := bufio.NewReader(bytes.NewReader(out.Bytes()))
	var msgs []rpcMessage
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			return msgs
		}
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		msgs = append(msgs, msg)
	}
}

func publications(t *testing.T, msgs []rpcMessage) []publishDiagnosticsParams {
	t.Helper()
	var out []publishDiagnosticsParams
	for _, msg := range msgs {
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params publishDiagnosticsParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			t.Fatalf("decode publish: %v", err)
		}
		out = append(out, params)
	}
	return out
}

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func writeScript(t *testing.T, body string) []string {
	t.Helper()
	sh := requireShell(t)
	path := filepath.Join(t.TempDir(), "fake-compiler.sh")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return []string{sh, path}
}

// pipeClient drives a running server over in-memory pipes.
type pipeClient struct {
	t      *testing.T
	in     *io.PipeWriter
	msgs   chan rpcMessage
	done   chan error
	nextID int
}

func startPipeServer(t *testing.T, opts ServerOptions) *pipeClient {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	if opts.Log == nil {
		opts.Log = io.Discard
	}
	server := NewServer(inR, outW, opts)
	c := &pipeClient{t: t, in: inW, msgs: make(chan rpcMessage, 64), done: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		err := server.Run(ctx)
		_ = outW.Close()
		c.done <- err
	}()
	go func() {
		reader := bufio.NewReader(outR)
		for {
			payload, err := readMessage(reader)
			if err != nil {
				close(c.msgs)
				return
			}
			var msg rpcMessage
			if json.Unmarshal(payload, &msg) == nil {
				c.msgs <- msg
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		_ = outR.Close()
	})
	return c
}

func (c *pipeClient) write(method string, id *int, params any) {
	c.t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if id != nil {
		msg["id"] = *id
	}
	if params != nil {
		msg["params"] = params
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	if err := writeMessage(c.in, payload); err != nil {
		c.t.Fatalf("write %s: %v", method, err)
	}
}

func (c *pipeClient) notify(method string, params any) {
	c.t.Helper()
	c.write(method, nil, params)
}

func (c *pipeClient) request(method string, params any) rpcMessage {
	c.t.Helper()
	c.nextID++
	id := c.nextID
	c.write(method, &id, params)
	want := rawID(id)
	return c.waitFor(method+" response", func(msg rpcMessage) bool {
		return msg.Method == "" && bytes.Equal(msg.ID, want)
	})
}

func rawID(id int) json.RawMessage {
	data, _ := json.Marshal(id)
	return data
}

// waitFor returns the first message matching match, failing after 5s.
func (c *pipeClient) waitFor(what string, match func(rpcMessage) bool) rpcMessage {
	c.t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				c.t.Fatalf("server closed before %s", what)
			}
			if match(msg) {
				return msg
			}
		case <-timeout:
			c.t.Fatalf("timed out waiting for %s", what)
			return rpcMessage{}
		}
	}
}

func (c *pipeClient) exit() error {
	c.t.Helper()
	c.request("shutdown", nil)
	c.notify("exit", nil)
	select {
	case err := <-c.done:
		return err
	case <-time.After(5 * time.Second):
		c.t.Fatal("server did not exit")
		return nil
	}
}
