package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/cmdtest/internal/report"
	"github.com/deixis/cmdtest/internal/spec"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Commands string `json:"commands" jsonschema:"YAML or JSON list of commands, e.g. [{description: echo-ok, command: echo, args: [hi], timeout: 2, returncode: 0}]"`
	Strict   *bool  `json:"strict,omitempty" jsonschema:"Fail every launch error, including under a failure expectation. Defaults to the configured strict_launch."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Commands) == "" {
		return errorResult("commands is required")
	}

	h.mu.Lock()
	engine := *h.engine
	cfg := *engine.Config
	h.mu.Unlock()

	if params.Strict != nil {
		cfg.StrictLaunch = *params.Strict
	}
	engine.Config = &cfg

	rep, err := engine.RunSpec(ctx, []byte(params.Commands))
	if err != nil {
		var specErr *spec.SpecError
		if errors.As(err, &specErr) {
			return errorResult(fmt.Sprintf("Invalid command list: %v", specErr))
		}
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}

	// Save results for cmd_inspect.
	run := rep.Run()
	saved := true
	if err := h.store.Save(run); err != nil {
		engine.Logger.Warn("run_not_saved", "run_id", run.ID, "error", err)
		saved = false
	}

	return textResult(formatRun(run, saved))
}

func formatRun(run *report.Run, saved bool) string {
	var b strings.Builder

	if run.Failed == 0 {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", run.ID)
	fmt.Fprintf(&b, "Commands: %d, failures: %d\n", run.Total, run.Failed)
	fmt.Fprintln(&b)

	for _, e := range run.Entries {
		fmt.Fprintf(&b, "  [%d] %s  %s\n", e.Index, e.Outcome.Status, e.Name())
		if !e.Outcome.Passed() {
			fmt.Fprintf(&b, "        %s\n", e.Outcome.Message)
		}
	}
	fmt.Fprintln(&b)

	fails := run.Failures()
	switch {
	case len(fails) == 0:
		fmt.Fprintln(&b, "All commands passed.")
	case saved:
		fmt.Fprintf(&b, "Inspect with cmd_inspect(run_id=%q, index=%d).\n", run.ID, fails[0].Index)
	default:
		fmt.Fprintln(&b, "Run could not be stored; cmd_inspect is unavailable for it.")
	}
	return b.String()
}
