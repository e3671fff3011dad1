package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"dpscript/internal/compiler"
	"dpscript/internal/fileuri"
	"dpscript/internal/project"
	"dpscript/internal/telemetry"
	"dpscript/internal/trace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// eventBuffer bounds compiler events waiting for the loop.
const eventBuffer = 256

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Config overrides dpscript.toml discovery when set.
	Config *project.Config
	// Mode overrides the configured compiler mode when non-empty.
	Mode      string
	Telemetry *telemetry.Provider
	Tracer    trace.Tracer
	Version   string
	// Log receives log lines; defaults to stderr.
	Log io.Writer
}

// Server handles stdio JSON-RPC for the DPScript LSP.
//
// All session state is owned by the goroutine running Run: protocol
// messages and compiler events are handled one at a time.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	logMu  sync.Mutex
	logw   io.Writer

	opts    ServerOptions
	baseCtx context.Context
	events  chan compiler.Event
	tracer  trace.Tracer
	metrics *telemetry.Provider

	session           *session
	shutdownRequested bool
	traceLSP          bool
}

type inbound struct {
	msg *rpcMessage
	err error
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	logw := opts.Log
	if logw == nil {
		logw = os.Stderr
	}
	s := &Server{
		in:      bufio.NewReader(in),
		out:     bufio.NewWriter(out),
		logw:    logw,
		opts:    opts,
		baseCtx: context.Background(),
		events:  make(chan compiler.Event, eventBuffer),
		tracer:  tracer,
		metrics: opts.Telemetry,
	}
	s.session = newSession(s.defaultConfig(), s.logf)
	return s
}

// Run serves LSP requests until the client exits or the input ends.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.baseCtx = ctx
	defer s.teardown()

	inbox := make(chan inbound)
	go s.readLoop(ctx, inbox)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-inbox:
			if item.err != nil {
				if errors.Is(item.err, io.EOF) {
					return nil
				}
				return item.err
			}
			if err := s.dispatch(item.msg); err != nil {
				return err
			}
		case ev := <-s.events:
			s.handleCompilerEvent(ev)
		}
	}
}

func (s *Server) readLoop(ctx context.Context, inbox chan<- inbound) {
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			select {
			case inbox <- inbound{err: err}:
			case <-ctx.Done():
			}
			return
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		select {
		case inbox <- inbound{msg: &msg}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) dispatch(msg *rpcMessage) error {
	if msg.Method == "" {
		// Responses to server-initiated requests are not awaited.
		return nil
	}
	span := trace.Begin(s.tracer, trace.ScopeRequest, msg.Method, s.session.spanID())
	err := s.handleMessage(msg)
	span.End("")
	return err
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		s.startCompiler()
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/didChangeWorkspaceFolders":
		return s.handleDidChangeWorkspaceFolders(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/signatureHelp":
		return s.handleSignatureHelp(msg)
	case methodServerStart:
		return s.handleServerStart(msg)
	case methodServerStop:
		return s.handleServerStop(msg)
	case methodCompile:
		return s.handleCompile(msg)
	case methodStats:
		return s.handleStats(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root, folders := workspaceFromParams(&params)
	cfg, manifest, err := s.resolveConfig(root)
	if err != nil {
		s.logf("config: %v; using defaults", err)
	} else if manifest != "" {
		s.logf("using %s", manifest)
	}
	s.session.configure(root, folders, cfg)
	s.session.span = trace.Begin(s.tracer, trace.ScopeSession, "session", 0)
	s.applySettings(params.InitializationOptions)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save: saveOptions{
					IncludeText: true,
				},
			},
			CompletionProvider: &completionOptions{
				TriggerCharacters: completionTriggers,
			},
			SignatureHelpProvider: &signatureHelpOptions{
				TriggerCharacters: []string{"(", ","},
			},
			Workspace: &workspaceServerCapabilities{
				WorkspaceFolders: workspaceFoldersServerCapabilities{
					Supported:           true,
					ChangeNotifications: true,
				},
			},
		},
		ServerInfo: &serverInfo{Name: "dpscript", Version: s.opts.Version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.shutdownRequested = true
	s.stopCompiler()
	s.clearPublishedDiagnostics()
	s.session.end()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidChangeWorkspaceFolders(msg *rpcMessage) error {
	var params didChangeWorkspaceFoldersParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	removed := make([]string, 0, len(params.Event.Removed))
	for _, f := range params.Event.Removed {
		removed = append(removed, fileuri.ToPath(f.URI))
	}
	added := make([]string, 0, len(params.Event.Added))
	for _, f := range params.Event.Added {
		added = append(added, fileuri.ToPath(f.URI))
	}
	s.session.updateFolders(added, removed)
	s.logf("workspace folders: %v", s.session.folders)
	s.startCompiler()
	return nil
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("%s: invalid params: %v", msg.Method, err)
		return nil
	}
	uri := s.session.docs.open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	if uri != "" && s.traceLSP {
		s.logf("didOpen: uri=%s version=%d", uri, params.TextDocument.Version)
	}
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("%s: invalid params: %v", msg.Method, err)
		return nil
	}
	uri, ok := s.session.docs.change(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
	if ok && s.traceLSP {
		s.logf("didChange: uri=%s version=%d", uri, params.TextDocument.Version)
	}
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("%s: invalid params: %v", msg.Method, err)
		return nil
	}
	uri := fileuri.Canonical(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	if params.Text != nil {
		s.session.docs.setText(uri, *params.Text)
	}
	if s.traceLSP {
		s.logf("didSave: uri=%s", uri)
	}
	s.recompile(compiler.TriggerSave)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("%s: invalid params: %v", msg.Method, err)
		return nil
	}
	doc, ok := s.session.docs.close(params.TextDocument.URI)
	if !ok {
		return nil
	}
	if s.session.translator.Forget(doc.uri) {
		if err := s.sendPublish(doc.wireURI, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	return nil
}

func (s *Server) teardown() {
	s.stopCompiler()
	s.session.end()
	if err := s.tracer.Flush(); err != nil {
		s.logf("trace flush: %v", err)
	}
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: list,
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	fmt.Fprintf(s.logw, "lsp: "+format+"\n", args...)
}
