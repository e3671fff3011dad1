package lsp

import (
	"context"
	"slices"

	"dpscript/internal/compiler"
	"dpscript/internal/diagnostics"
	"dpscript/internal/fileuri"
	"dpscript/internal/project"
	"dpscript/internal/reload"
	"dpscript/internal/trace"
)

// session is the per-client state created by initialize and torn down by
// shutdown.
type session struct {
	root    string
	folders []string
	cfg     project.Config

	docs       *documents
	translator *diagnostics.Translator

	persistent *compiler.Persistent
	batch      *compiler.Batch

	batchRunning   bool
	batchPending   bool
	pendingTrigger compiler.Trigger
	batchSpan      *trace.Span

	// outputPath is set by server_start and targets save-triggered compiles.
	outputPath string

	hub       *reload.Hub
	hubCancel context.CancelFunc

	span  *trace.Span
	ended bool
}

func newSession(cfg project.Config, logf diagnostics.Logger) *session {
	docs := newDocuments()
	return &session{
		cfg:        cfg,
		docs:       docs,
		translator: diagnostics.NewTranslator(docs, logf),
	}
}

func (ss *session) configure(root string, folders []string, cfg project.Config) {
	ss.root = root
	ss.folders = folders
	ss.cfg = cfg
}

func (ss *session) updateFolders(added, removed []string) {
	for _, r := range removed {
		r = fileuri.Clean(r)
		ss.folders = slices.DeleteFunc(ss.folders, func(f string) bool { return f == r })
	}
	for _, a := range added {
		if a == "" {
			continue
		}
		a = fileuri.Clean(a)
		if !slices.Contains(ss.folders, a) {
			ss.folders = append(ss.folders, a)
		}
	}
	if ss.root == "" && len(ss.folders) > 0 {
		ss.root = ss.folders[0]
	}
}

// firstFolder is the compile root of the persistent compiler.
func (ss *session) firstFolder() string {
	if len(ss.folders) > 0 {
		return ss.folders[0]
	}
	return ss.root
}

func (ss *session) spanID() uint64 {
	return ss.span.ID()
}

func (ss *session) end() {
	if ss.ended {
		return
	}
	ss.ended = true
	if ss.hubCancel != nil {
		ss.hubCancel()
		ss.hubCancel = nil
	}
	if ss.span != nil {
		ss.span.End("")
	}
}
