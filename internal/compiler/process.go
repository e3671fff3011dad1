package compiler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State represents the state of a compiler process.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateExited
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// maxLineBytes bounds a single output line.
const maxLineBytes = 1 << 20

// Spec describes a process to start.
type Spec struct {
	Name string
	Argv []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
	// Stdin pipes the process's stdin.
	Stdin bool
}

// Process is one compiler process handle.
//
// Output must be consumed with Drain, which also reaps the process; Done is
// closed once that has happened.
type Process struct {
	ID   string
	Name string
	Cmd  *exec.Cmd

	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	Started time.Time

	done     chan struct{}
	state    atomic.Int32
	exitCode atomic.Int32
	killed   atomic.Bool

	mu      sync.RWMutex
	exitErr error

	waitOnce sync.Once
}

// StartProcess spawns spec with piped stdout and stderr.
func StartProcess(spec Spec) (*Process, error) {
	if len(spec.Argv) == 0 || spec.Argv[0] == "" {
		return nil, ErrNoCommand
	}
	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...) //nolint:gosec // command comes from workspace configuration
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	proc := newProcess(uuid.NewString(), spec.Name, cmd)

	var err error
	if spec.Stdin {
		if proc.Stdin, err = cmd.StdinPipe(); err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}
	if proc.Stdout, err = cmd.StdoutPipe(); err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if proc.Stderr, err = cmd.StderrPipe(); err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := proc.start(); err != nil {
		return nil, err
	}
	return proc, nil
}

func newProcess(id, name string, cmd *exec.Cmd) *Process {
	p := &Process{
		ID:   id,
		Name: name,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
	p.state.Store(int32(StateCreated))
	p.exitCode.Store(-1)
	return p
}

func (p *Process) start() error {
	if p.State() != StateCreated {
		return ErrAlreadyStarted
	}
	if err := p.Cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.Name, err)
	}
	p.Started = time.Now()
	p.state.Store(int32(StateRunning))
	return nil
}

func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode returns -1 until the process has been reaped.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

func (p *Process) ExitError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitErr
}

// Done is closed after the process has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) IsRunning() bool {
	return p.State() == StateRunning
}

// PID returns the OS process id, or -1 if not started.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Kill terminates the process immediately.
func (p *Process) Kill() error {
	if !p.IsRunning() || p.Cmd.Process == nil {
		return ErrNoProcess
	}
	p.killed.Store(true)
	if err := p.Cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %s: %w", p.Name, err)
	}
	return nil
}

// CloseStdin signals end of input to the process.
func (p *Process) CloseStdin() error {
	if p.Stdin == nil {
		return nil
	}
	return p.Stdin.Close()
}

// Drain reads stdout and stderr line by line until both are closed, then
// reaps the process. The callbacks run on separate goroutines. The returned
// error is the process's exit error, or the first read error.
func (p *Process) Drain(onStdout, onStderr func(line string)) error {
	var g errgroup.Group
	if p.Stdout != nil {
		g.Go(func() error { return scanLines(p.Stdout, onStdout) })
	}
	if p.Stderr != nil {
		g.Go(func() error { return scanLines(p.Stderr, onStderr) })
	}
	readErr := g.Wait()
	if waitErr := p.wait(); waitErr != nil {
		return waitErr
	}
	return readErr
}

func (p *Process) wait() error {
	p.waitOnce.Do(func() {
		err := p.Cmd.Wait()

		p.mu.Lock()
		p.exitErr = err
		p.mu.Unlock()

		exitCode := 0
		state := StateExited
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		if p.killed.Load() {
			state = StateKilled
		}
		code, convErr := safecast.Conv[int32](exitCode)
		if convErr != nil {
			code = -1
		}
		p.exitCode.Store(code)
		p.state.Store(int32(state))
		close(p.done)
	})
	return p.ExitError()
}

func scanLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
	err := scanner.Err()
	if err == nil || errors.Is(err, os.ErrClosed) {
		return nil
	}
	// Keep the pipe flowing so the process cannot block on a full buffer.
	_, _ = io.Copy(io.Discard, r)
	return err
}
