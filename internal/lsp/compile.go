package lsp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"dpscript/internal/compiler"
	"dpscript/internal/project"
	"dpscript/internal/reload"
	"dpscript/internal/trace"
)

// startCompiler prepares the configured strategy. In persistent mode the
// compiler is spawned bound to the first workspace folder; batch mode only
// builds the runner. Calling it again is a no-op.
func (s *Server) startCompiler() {
	ss := s.session
	s.startHub()
	switch ss.cfg.Compiler.Mode {
	case project.ModeBatch:
		if ss.batch != nil {
			return
		}
		ss.batch = compiler.NewBatch(compiler.BatchConfig{
			Command: ss.cfg.Compiler.BatchCommand,
			WorkDir: ss.cfg.Compiler.WorkDir,
			Report:  ss.cfg.Compiler.Report,
			Timeout: ss.cfg.Compiler.BatchTimeout.Duration,
		}, s.logf)
		ss.batch.OnProgress = s.batchProgress
		ss.batch.OnOutput = func(folder, line string) {
			if line != "" {
				s.logf("compiler(%s): %s", filepath.Base(folder), line)
			}
		}
	default:
		if ss.persistent != nil {
			return
		}
		root := ss.firstFolder()
		if root == "" {
			s.logf("no workspace folder; compiler not started")
			return
		}
		ss.persistent = compiler.NewPersistent(s.baseCtx, compiler.PersistentConfig{
			Command: ss.cfg.Compiler.Command,
			Dir:     ss.cfg.Compiler.WorkDir,
			Timeout: ss.cfg.Compiler.CommandTimeout.Duration,
		}, s.events)
		s.logf("launching compiler for %s", root)
		err := ss.persistent.Start(root)
		s.metrics.ProcessSpawn(s.baseCtx, err == nil)
		if err != nil {
			s.logf("compiler: %v", err)
			return
		}
		trace.Point(s.tracer, trace.ScopeProcess, "process:spawn",
			fmt.Sprintf("id=%s pid=%d", ss.persistent.ProcessID(), ss.persistent.PID()), ss.spanID())
	}
}

func (s *Server) stopCompiler() {
	p := s.session.persistent
	if p == nil || !p.Running() {
		return
	}
	id := p.ProcessID()
	if err := p.Stop(); err != nil {
		s.logf("stop compiler: %v", err)
	}
	trace.Point(s.tracer, trace.ScopeProcess, "process:stop", id, s.session.spanID())
}

// recompile runs one compile pass with the active strategy.
func (s *Server) recompile(trigger compiler.Trigger) {
	if s.session.cfg.Compiler.Mode == project.ModeBatch {
		s.requestBatch(trigger)
		return
	}
	s.compilePersistent(trigger)
}

// compilePersistent clears the open documents and asks the compiler to log
// errors, then to compile into the target of trigger. Without a live
// process one respawn is attempted, subject to backoff.
func (s *Server) compilePersistent(trigger compiler.Trigger) {
	ss := s.session
	p := ss.persistent
	if p == nil {
		s.startCompiler()
		if p = ss.persistent; p == nil {
			return
		}
	}
	if !p.Running() {
		if err := p.EnsureRunning(); err != nil {
			if !errors.Is(err, compiler.ErrBackoff) {
				s.metrics.ProcessSpawn(s.baseCtx, false)
			}
			s.logf("compiler unavailable: %v", err)
			return
		}
		s.metrics.ProcessSpawn(s.baseCtx, true)
		ss.translator.Reset()
		trace.Point(s.tracer, trace.ScopeProcess, "process:respawn",
			fmt.Sprintf("id=%s pid=%d", p.ProcessID(), p.PID()), ss.spanID())
	}

	target := ""
	switch trigger {
	case compiler.TriggerSave:
		target = ss.outputPath
	case compiler.TriggerManual:
		if folder := ss.firstFolder(); folder != "" {
			target = filepath.Join(folder, ss.cfg.Compiler.Output)
		}
	}

	s.logf("recompiling (%s)", trigger)
	s.publish(ss.translator.BeginPass())
	if err := p.Send(compiler.LogErrors(trigger)); err != nil {
		s.logf("compiler: %v", err)
		return
	}
	if target != "" {
		if err := p.Send(compiler.Compile(target, trigger)); err != nil {
			s.logf("compiler: %v", err)
			return
		}
	}
	s.metrics.CompilePass(s.baseCtx, project.ModePersistent, trigger.String())
	trace.Point(s.tracer, trace.ScopeCompile, "compile", trigger.String()+" "+target, ss.spanID())
}

// requestBatch starts a batch cycle over every workspace folder, or queues
// one when a cycle is already running.
func (s *Server) requestBatch(trigger compiler.Trigger) {
	ss := s.session
	if ss.batch == nil {
		s.startCompiler()
		if ss.batch == nil {
			return
		}
	}
	if ss.batchRunning {
		ss.batchPending = true
		ss.pendingTrigger = trigger
		s.logf("batch compile running; queued %s", trigger)
		return
	}
	if len(ss.folders) == 0 {
		s.logf("no workspace folder to compile")
		return
	}
	folders := append([]string(nil), ss.folders...)
	ss.batchRunning = true
	ss.batchSpan = trace.Begin(s.tracer, trace.ScopeCompile, "batch", ss.spanID())
	ss.batchSpan.WithExtra("trigger", trigger.String())
	s.metrics.CompilePass(s.baseCtx, project.ModeBatch, trigger.String())
	ss.batch.Start(s.baseCtx, folders, s.events)
}

// batchProgress runs on the batch goroutine; it only touches
// goroutine-safe collaborators.
func (s *Server) batchProgress(p compiler.Progress) {
	if !p.Done {
		s.logf("compiling datapack %s (%d/%d)", p.Folder, p.Index+1, p.Total)
		return
	}
	s.metrics.BatchInvocation(s.baseCtx, p.Result.Duration.Milliseconds(), p.Result.Err != nil)
	trace.Point(s.tracer, trace.ScopeProcess, "batch:folder",
		fmt.Sprintf("%s exit=%d errors=%d", p.Folder, p.Result.ExitCode, p.Result.Errors), 0)
}

func (s *Server) handleCompilerEvent(ev compiler.Event) {
	ss := s.session
	switch ev.Kind {
	case compiler.EventStdout:
		if ev.Line != "" && s.traceLSP {
			s.logf("compiler: %s", ev.Line)
		}
	case compiler.EventStderr:
		before := ss.translator.Malformed
		s.publish(ss.translator.StreamLine(ev.Line))
		if ss.translator.Malformed > before {
			s.metrics.MalformedLine(s.baseCtx)
		}
	case compiler.EventCommandDone:
		if ss.persistent != nil {
			ss.persistent.HandleCommandDone(ev)
		}
		if ev.Command.Kind == compiler.CmdCompile && ev.Command.Trigger == compiler.TriggerSave {
			s.notifyReload(ev.Command.Path, ev.Command.Trigger)
		}
	case compiler.EventCommandFailed:
		s.logf("compiler command %q failed: %v", ev.Command.Kind, ev.Err)
	case compiler.EventExit:
		s.handleProcessExit(ev)
	case compiler.EventBatchDone:
		s.handleBatchDone(ev)
	}
}

func (s *Server) handleProcessExit(ev compiler.Event) {
	ss := s.session
	if ss.persistent == nil || ss.persistent.ProcessID() != ev.ProcessID {
		return
	}
	unexpected := ss.persistent.HandleExit(ev)
	ss.translator.Reset()
	s.metrics.ProcessExit(s.baseCtx, ev.ExitCode, !unexpected)
	trace.Point(s.tracer, trace.ScopeProcess, "process:exit",
		fmt.Sprintf("id=%s code=%d", ev.ProcessID, ev.ExitCode), ss.spanID())
	if unexpected {
		s.logf("compiler exited with code %d (%v); diagnostics suspended until the next save", ev.ExitCode, ev.Err)
	}
}

func (s *Server) handleBatchDone(ev compiler.Event) {
	ss := s.session
	ss.batchRunning = false
	detail := "ok"
	if ev.Err != nil {
		detail = ev.Err.Error()
		s.logf("batch compile: %v", ev.Err)
	}
	if ev.Batch != nil && !errors.Is(ev.Err, context.Canceled) {
		for _, fr := range ev.Batch.Folders {
			if fr.Err != nil {
				s.logf("batch compile %s: %v", fr.Folder, fr.Err)
			}
		}
		s.publish(ss.translator.ApplyBatch(ev.Batch.Errors))
		ss.batchSpan.WithExtra("errors", fmt.Sprint(len(ev.Batch.Errors)))
	}
	ss.batchSpan.End(detail)
	ss.batchSpan = nil
	if ss.batchPending {
		ss.batchPending = false
		s.requestBatch(ss.pendingTrigger)
	}
}

// notifyReload tells the client, and any live game session, that the
// datapack at output was rebuilt.
func (s *Server) notifyReload(output string, trigger compiler.Trigger) {
	if err := s.sendNotification(methodReloadServer, nil); err != nil {
		s.logf("reload_server: %v", err)
	}
	if hub := s.session.hub; hub != nil {
		hub.Broadcast(output, trigger.String())
	}
}

func (s *Server) startHub() {
	ss := s.session
	addr := ss.cfg.Reload.Listen
	if addr == "" || ss.hub != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	hub := reload.NewHub(s.logf)
	ss.hub = hub
	ss.hubCancel = cancel
	go func() {
		if err := hub.Serve(ctx, addr, nil); err != nil {
			s.logf("%v", err)
		}
	}()
}
