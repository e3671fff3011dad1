package lsp

import (
	"encoding/json"
	"errors"
	"strings"

	"dpscript/internal/compiler"
	"dpscript/internal/fileuri"
)

// Custom methods exchanged with the editor extension.
const (
	methodServerStart  = "server_start"
	methodServerStop   = "server_stop"
	methodCompile      = "compile"
	methodReloadServer = "reload_server"
	methodStats        = "dpscript/stats"
)

var errNoPath = errors.New("missing path")

// decodePathParam accepts a bare string, a one-element array or an object
// with a "path" field.
func decodePathParam(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errNoPath
	}
	var path string
	if err := json.Unmarshal(raw, &path); err == nil {
		return normalizePath(path)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", errNoPath
		}
		return normalizePath(list[0])
	}
	var obj struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return normalizePath(obj.Path)
}

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errNoPath
	}
	if strings.HasPrefix(path, "file:") {
		if p := fileuri.ToPath(path); p != "" {
			return p, nil
		}
	}
	return path, nil
}

func (s *Server) handleServerStart(msg *rpcMessage) error {
	path, err := decodePathParam(msg.Params)
	if err != nil {
		s.logf("server_start: %v", err)
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
		return nil
	}
	s.session.outputPath = path
	s.logf("server started; compiling into %s on save", path)
	if len(msg.ID) > 0 {
		return s.sendResponse(msg.ID, nil)
	}
	return nil
}

func (s *Server) handleServerStop(msg *rpcMessage) error {
	s.session.outputPath = ""
	s.logf("server stopped")
	if len(msg.ID) > 0 {
		return s.sendResponse(msg.ID, nil)
	}
	return nil
}

func (s *Server) handleCompile(msg *rpcMessage) error {
	s.recompile(compiler.TriggerManual)
	if len(msg.ID) > 0 {
		return s.sendResponse(msg.ID, nil)
	}
	return nil
}
