package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// DefaultCommandTimeout bounds each command write.
const DefaultCommandTimeout = 10 * time.Second

// queueDepth bounds commands waiting to be written.
const queueDepth = 64

// PersistentConfig configures the long-lived compiler.
type PersistentConfig struct {
	// Command is the compiler argv; the workspace root is appended.
	Command []string
	Dir     string
	Env     []string
	// Timeout bounds each command write and the graceful stop.
	Timeout time.Duration
}

// Persistent supervises one long-lived compiler process.
//
// Its methods are meant to be called from a single goroutine; process
// output and command completion are delivered on the events channel.
type Persistent struct {
	cfg     PersistentConfig
	sink    sink
	backoff *backoff
	now     func() time.Time

	root   string
	handle *persistentHandle
	spawns int
}

type persistentHandle struct {
	proc     *Process
	queue    chan Command
	stopping atomic.Bool
	stopped  chan struct{}
}

// NewPersistent returns a supervisor that reports on events until ctx ends.
func NewPersistent(ctx context.Context, cfg PersistentConfig, events chan<- Event) *Persistent {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCommandTimeout
	}
	return &Persistent{
		cfg:     cfg,
		sink:    sink{ctx: ctx, ch: events},
		backoff: newBackoff(),
		now:     time.Now,
	}
}

// Start spawns the compiler bound to root. A live process is kept.
func (p *Persistent) Start(root string) error {
	p.root = root
	if p.Running() {
		return nil
	}
	return p.spawn()
}

// EnsureRunning respawns the compiler after an exit or failed spawn,
// subject to the respawn backoff. It returns ErrBackoff while waiting.
func (p *Persistent) EnsureRunning() error {
	if p.Running() {
		return nil
	}
	if ok, wait := p.backoff.ready(p.now()); !ok {
		return fmt.Errorf("%w: retry in %s", ErrBackoff, wait.Round(time.Millisecond))
	}
	return p.spawn()
}

func (p *Persistent) spawn() error {
	argv := append(append([]string(nil), p.cfg.Command...), p.root)
	proc, err := StartProcess(Spec{
		Name:  "compiler",
		Argv:  argv,
		Dir:   p.cfg.Dir,
		Env:   p.cfg.Env,
		Stdin: true,
	})
	if err != nil {
		p.backoff.fail(p.now())
		return fmt.Errorf("spawn compiler: %w", err)
	}
	h := &persistentHandle{proc: proc, queue: make(chan Command, queueDepth), stopped: make(chan struct{})}
	p.handle = h
	p.spawns++
	go p.drain(h)
	go p.writeLoop(h)
	return nil
}

// emitOutput forwards a compiler line unless Stop is in progress; the
// consumer is usually the goroutine waiting in Stop.
func (p *Persistent) emitOutput(h *persistentHandle, ev Event) {
	if h.stopping.Load() || p.sink.ch == nil {
		return
	}
	select {
	case p.sink.ch <- ev:
	case <-h.stopped:
	case <-p.sink.ctx.Done():
	}
}

func (p *Persistent) drain(h *persistentHandle) {
	id := h.proc.ID
	err := h.proc.Drain(
		func(line string) { p.emitOutput(h, Event{Kind: EventStdout, ProcessID: id, Line: line}) },
		func(line string) { p.emitOutput(h, Event{Kind: EventStderr, ProcessID: id, Line: line}) },
	)
	p.sink.emit(Event{Kind: EventExit, ProcessID: id, ExitCode: h.proc.ExitCode(), Err: err})
}

// writeLoop writes queued commands in order; each write completes before
// the next starts.
func (p *Persistent) writeLoop(h *persistentHandle) {
	for {
		select {
		case <-h.proc.Done():
			return
		case <-p.sink.ctx.Done():
			return
		case cmd := <-h.queue:
			err := writeWithTimeout(h.proc.Stdin, []byte(cmd.Wire()), p.cfg.Timeout)
			if err != nil {
				_ = h.proc.Kill()
				p.sink.emit(Event{Kind: EventCommandFailed, ProcessID: h.proc.ID, Command: cmd, Err: err})
				return
			}
			p.sink.emit(Event{Kind: EventCommandDone, ProcessID: h.proc.ID, Command: cmd})
		}
	}
}

// Send queues cmd for the live process. It returns ErrNoProcess when there
// is none.
func (p *Persistent) Send(cmd Command) error {
	h := p.handle
	if h == nil || !h.proc.IsRunning() || h.stopping.Load() {
		return ErrNoProcess
	}
	select {
	case h.queue <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// HandleExit forgets the process that produced an EventExit. It reports
// whether the exit was unexpected, in which case the respawn backoff
// advances.
func (p *Persistent) HandleExit(ev Event) bool {
	h := p.handle
	if h == nil || h.proc.ID != ev.ProcessID {
		return false
	}
	p.handle = nil
	if h.stopping.Load() {
		return false
	}
	p.backoff.fail(p.now())
	return true
}

// HandleCommandDone marks the process healthy again.
func (p *Persistent) HandleCommandDone(Event) {
	p.backoff.reset()
}

func (p *Persistent) Running() bool {
	return p.handle != nil && p.handle.proc.IsRunning()
}

// ProcessID returns the id of the live process, or "".
func (p *Persistent) ProcessID() string {
	if p.handle == nil {
		return ""
	}
	return p.handle.proc.ID
}

// PID returns the OS pid of the live process, or -1.
func (p *Persistent) PID() int {
	if p.handle == nil {
		return -1
	}
	return p.handle.proc.PID()
}

// Spawns counts successful spawns.
func (p *Persistent) Spawns() int {
	return p.spawns
}

// Stop closes the compiler's stdin and waits for it to exit, killing it
// once the timeout elapses.
func (p *Persistent) Stop() error {
	h := p.handle
	if h == nil {
		return nil
	}
	p.handle = nil
	h.stopping.Store(true)
	close(h.stopped)
	_ = h.proc.CloseStdin()

	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-h.proc.Done():
		return nil
	case <-timer.C:
	}
	if err := h.proc.Kill(); err != nil && !errors.Is(err, ErrNoProcess) {
		return err
	}
	timer.Reset(p.cfg.Timeout)
	select {
	case <-h.proc.Done():
		return nil
	case <-timer.C:
		return fmt.Errorf("stop compiler %s: %w", h.proc.ID, ErrWatchdog)
	}
}

// writeWithTimeout writes data, giving up after timeout. A write that times
// out keeps blocking in the background until the writer is closed.
func writeWithTimeout(w io.Writer, data []byte, timeout time.Duration) error {
	if w == nil {
		return ErrNoProcess
	}
	done := make(chan error, 1)
	go func() {
		_, err := w.Write(data)
		done <- err
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write command: %w", err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("write command after %s: %w", timeout, ErrWatchdog)
	}
}
