package workflow

import (
	"context"
	"fmt"

	"github.com/deixis/cmdtest/internal/outcome"
	"github.com/deixis/cmdtest/internal/report"
	"github.com/deixis/cmdtest/internal/spec"
	"github.com/google/uuid"
)

// Run executes cmds one at a time, in input order, and returns the
// report they produced. Each command runs to completion or timeout
// before the next starts. Per-command errors become failed outcomes;
// only cancellation of ctx stops the batch early, in which case the
// partial report is returned with the context error.
func (e *Engine) Run(ctx context.Context, cmds []spec.Command, sinks ...report.Sink) (*report.Report, error) {
	runID := uuid.New().String()
	rep := report.New(runID, append(append([]report.Sink(nil), e.Sinks...), sinks...)...)

	log := e.logger().With("run_id", runID)
	log.Info("batch_started", "commands", len(cmds))

	opts := outcome.Options{StrictLaunch: e.Config.StrictLaunch}
	for i, cmd := range cmds {
		log.Info("running_command", "index", i, "description", cmd.Description, "command", cmd.String())

		res, err := e.Runner.Run(ctx, cmd.Argv, cmd.Dir, cmd.Timeout)
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("batch_cancelled", "completed", i, "error", ctxErr)
			return rep, fmt.Errorf("running %q: %w", cmd.Description, ctxErr)
		}
		if err != nil {
			res = nil
		}

		rep.Add(cmd, outcome.Classify(cmd, res, err, opts), res)
	}

	log.Info("batch_finished", "total", rep.Total(), "failed", rep.Failed())
	return rep, nil
}

// RunSpec parses a serialized command list and runs it. A malformed list
// is returned as a *spec.SpecError before anything executes.
func (e *Engine) RunSpec(ctx context.Context, data []byte, sinks ...report.Sink) (*report.Report, error) {
	cmds, err := spec.Parse(data)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, cmds, sinks...)
}
