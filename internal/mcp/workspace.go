package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deixis/cmdtest/internal/config"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ workspaceParams) (*sdkmcp.CallToolResult, any, error) {
	h.mu.Lock()
	cfg := *h.engine.Config
	workspace, root := h.workspace, h.root
	h.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Workspace: %s\n", workspace)

	cfgPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(cfgPath); err != nil {
		cfgPath = "(none, using defaults)"
	}
	fmt.Fprintf(&b, "Config: %s\n", cfgPath)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Settings:")
	fmt.Fprintf(&b, "  default timeout: %s\n", cfg.Timeout())
	fmt.Fprintf(&b, "  max output: %d bytes per stream\n", cfg.MaxOutputBytes())
	fmt.Fprintf(&b, "  strict launch: %t\n", cfg.StrictLaunch)
	fmt.Fprintf(&b, "  report: %s\n", cfg.ReportPath())

	return textResult(b.String())
}
