package compiler

import "errors"

var (
	// ErrNoProcess is returned when a command is sent without a live process.
	ErrNoProcess = errors.New("compiler process not running")
	// ErrWatchdog is returned when a write or run exceeded its timeout.
	ErrWatchdog = errors.New("compiler watchdog timeout")
	// ErrBackoff is returned when a respawn is attempted too soon after
	// consecutive failures.
	ErrBackoff = errors.New("compiler respawn backing off")
	// ErrNoCommand is returned when the configured command is empty.
	ErrNoCommand = errors.New("compiler command not configured")
	// ErrQueueFull is returned when commands pile up faster than the
	// process accepts them.
	ErrQueueFull = errors.New("compiler command queue full")
	// ErrAlreadyStarted is returned by Process.start on a second call.
	ErrAlreadyStarted = errors.New("process already started")
)
