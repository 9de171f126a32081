package popup

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP exposes the popup state as MCP tools so agent frontends can
// inspect the pipeline without the CLI.
func (p *Poller) RegisterMCP(srv *mcp.Server) {
	p.registerStatusTool(srv)
	p.registerWorkflowsTool(srv)
	p.registerLatestResultTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		var res mcp.CallToolResult
		res.SetError(err)
		return &res, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func (p *Poller) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "capsync_status",
		Description: "Report the capture pipeline status: event counter, server liveness, result lifecycle state.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v := p.View()
		return textResult(map[string]any{
			"online":      v.Online,
			"event_count": v.EventCount,
			"state":       string(v.State),
		})
	})
}

func (p *Poller) registerWorkflowsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "capsync_workflows",
		Description: "List the workflows currently displayed, including local-only active flags.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(map[string]any{"workflows": p.workflows.ListAll()})
	})
}

func (p *Poller) registerLatestResultTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "capsync_latest_result",
		Description: "Return the currently held result, or none.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r, ok := p.lifecycle.Current()
		if !ok {
			return textResult(map[string]any{"result": nil})
		}
		return textResult(map[string]any{
			"result":  r,
			"preview": Preview(r),
		})
	})
}
