package compiler

import (
	"context"
	"time"

	"dpscript/internal/diagnostics"
)

// EventKind classifies an Event.
type EventKind uint8

const (
	// EventStdout is an informational stdout line.
	EventStdout EventKind = iota
	// EventStderr is a stderr line; it may carry an error.
	EventStderr
	// EventCommandDone reports that a command was fully written.
	EventCommandDone
	// EventCommandFailed reports a failed or timed out write. The process
	// is killed and an EventExit follows.
	EventCommandFailed
	// EventExit reports that a process exited.
	EventExit
	// EventBatchDone carries the result of a whole batch cycle.
	EventBatchDone
)

func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventCommandDone:
		return "command_done"
	case EventCommandFailed:
		return "command_failed"
	case EventExit:
		return "exit"
	case EventBatchDone:
		return "batch_done"
	}
	return "unknown"
}

// Event is one piece of compiler activity.
type Event struct {
	Kind      EventKind
	ProcessID string
	Line      string
	Command   Command
	ExitCode  int
	Err       error
	Batch     *BatchResult
}

// BatchResult is the outcome of one batch cycle over every folder.
type BatchResult struct {
	Errors  []diagnostics.CompilerError
	Folders []FolderResult
}

// FolderResult describes one batch invocation.
type FolderResult struct {
	Folder    string
	ProcessID string
	ExitCode  int
	Errors    int
	// NoReport is set when the invocation left no report behind.
	NoReport bool
	Duration time.Duration
	Err      error
}

// sink delivers events until its context ends.
type sink struct {
	ctx context.Context
	ch  chan<- Event
}

func (s sink) emit(ev Event) bool {
	if s.ch == nil {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}
