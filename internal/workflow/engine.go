// Package workflow provides the execution engine that drives a command
// batch through the runner, the outcome classifier and the report. It
// is consumed by both the MCP server and the CLI.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/deixis/cmdtest/internal/config"
	"github.com/deixis/cmdtest/internal/logging"
	"github.com/deixis/cmdtest/internal/report"
	"github.com/deixis/cmdtest/internal/runner"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string, timeout time.Duration) (*runner.Result, error)
}

// Engine holds shared dependencies for batch runs.
type Engine struct {
	Config *config.Config
	Runner CommandRunner
	Logger *slog.Logger  // nil discards
	Sinks  []report.Sink // receive every entry of every run
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}
