// Package mcp provides the cmdtest MCP server, registering the batch
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/cmdtest"
	"github.com/deixis/cmdtest/internal/config"
	"github.com/deixis/cmdtest/internal/logging"
	"github.com/deixis/cmdtest/internal/report"
	"github.com/deixis/cmdtest/internal/runner"
	"github.com/deixis/cmdtest/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex // guards engine, workspace and root
	engine    *workflow.Engine
	store     report.Store
	workspace string
	root      string // directory the config was loaded from
}

// NewServer creates an MCP server with all cmdtest tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, workspace string, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	if so.logger == nil {
		so.logger = logging.Discard()
	}

	h := &handler{
		engine: &workflow.Engine{
			Config: cfg,
			Runner: r,
			Logger: so.logger,
			Sinks:  so.sinks,
		},
		store:     store,
		workspace: workspace,
		root:      workspace, // MCP defaults to workspace; updated via roots
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "cmdtest", Version: cmdtest.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "cmd_workspace",
		Description: "Summarise the harness setup: workspace directory, configuration file, and effective settings.",
	}, h.workspaceHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cmd_run",
		Description: `Run a list of commands sequentially and classify each against its expected outcome.

The commands argument is a YAML or JSON list of mappings with description, command, timeout (seconds)
and returncode, plus optional expected (success, failure or timeout), args and cwd.
Results are stored for drill-down via cmd_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cmd_inspect",
		Description: `Drill into one command of a cmd_run batch.

Use the run_id from the cmd_run output and the command's index (0-based, in input order).
Returns the verdict, exit code, duration and the captured stdout and stderr.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the cmdtest MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger *slog.Logger
	sinks  []report.Sink
}

// WithLogger sets the logger batch runs write to.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// WithSinks attaches sinks that receive every entry of every batch.
func WithSinks(sinks ...report.Sink) ServerOption {
	return func(o *serverOptions) {
		o.sinks = append(o.sinks, sinks...)
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and switches
// to the first one if it is a valid file root.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	_ = h.setWorkspace(u.Path)
}

// setWorkspace loads the configuration for workspace and swaps in a new
// runner and config for it. Runners are never mutated, so batches already
// holding one are unaffected.
func (h *handler) setWorkspace(workspace string) error {
	loaded, err := config.Load(workspace)
	if err != nil {
		return err
	}

	r := &runner.Runner{
		Workspace: workspace,
		Timeout:   loaded.Config.Timeout(),
		MaxOutput: loaded.Config.MaxOutputBytes(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.engine.Runner = r
	h.engine.Config = loaded.Config
	h.workspace = workspace
	h.root = loaded.Root
	return nil
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
