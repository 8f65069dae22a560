package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/cmdtest/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a cmd_run result"`
	Index int    `json:"index" jsonschema:"0-based position of the command in the submitted list"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	run, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	e, err := run.Entry(params.Index)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatEntry(run.ID, e))
}

func formatEntry(runID string, e report.Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "[%d] %s (%s)\n", e.Index, e.Command.Description, strings.ToUpper(string(e.Outcome.Status)))
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Command: %s\n", e.Command.String())
	if e.Command.Dir != "" {
		fmt.Fprintf(&b, "Directory: %s\n", e.Command.Dir)
	}
	fmt.Fprintf(&b, "Expected: %s (return code %d, timeout %s)\n", e.Command.Expect, e.Command.ReturnCode, e.Command.Timeout)

	switch {
	case !e.Launched:
		fmt.Fprintln(&b, "Launched: no")
	case e.TimedOut:
		fmt.Fprintf(&b, "Timed out after %s\n", e.Duration)
	default:
		fmt.Fprintf(&b, "Exit code: %d (%s)\n", e.ExitCode, e.Duration)
	}
	if e.Outcome.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", e.Outcome.Message)
	}

	writeStream(&b, "Stdout", e.Stdout)
	writeStream(&b, "Stderr", e.Stderr)
	return b.String()
}

func writeStream(b *strings.Builder, name, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintln(b)
	fmt.Fprintf(b, "%s:\n", name)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
