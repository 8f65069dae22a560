package runner

import (
	"fmt"
	"time"
)

// UndefinedExitCode is reported when the process was killed on timeout
// and never produced an exit status of its own.
const UndefinedExitCode = -1

// Result holds the output of a command execution.
type Result struct {
	RunID     string        // unique identifier for this run
	ExitCode  int           // process exit code; UndefinedExitCode when TimedOut
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	TimedOut  bool          // true if the process was killed at its deadline
	Truncated bool          // true if output exceeded the size cap
	Duration  time.Duration // wall-clock time from start to reap
}

// LaunchError reports that a process could not be started at all,
// as opposed to running and exiting non-zero.
type LaunchError struct {
	Argv     []string
	Err      error
	NotFound bool // the executable could not be located
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Argv[0], e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
