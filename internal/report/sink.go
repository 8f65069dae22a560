package report

import (
	"log/slog"
	"strings"
)

// LogSink logs each entry as it is recorded. With Verbose set, non-blank
// stdout and stderr of every command are logged too.
type LogSink struct {
	Logger  *slog.Logger
	Verbose bool
}

// Record implements Sink.
func (s *LogSink) Record(e Entry) {
	if s.Verbose {
		if strings.TrimSpace(e.Stdout) != "" {
			s.Logger.Info("command_stdout", "index", e.Index, "stdout", e.Stdout)
		}
		if strings.TrimSpace(e.Stderr) != "" {
			s.Logger.Info("command_stderr", "index", e.Index, "stderr", e.Stderr)
		}
	}

	if e.Outcome.Passed() {
		s.Logger.Info("command_passed",
			"index", e.Index,
			"command", e.Command.String(),
			"duration", e.Duration,
		)
		return
	}
	s.Logger.Warn("command_failed",
		"index", e.Index,
		"command", e.Command.String(),
		"exit_code", e.ExitCode,
		"timed_out", e.TimedOut,
		"message", e.Outcome.Message,
	)
}
