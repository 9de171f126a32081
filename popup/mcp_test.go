package popup

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/capsync/serverapi"
)

var testMCPImpl = &mcp.Implementation{Name: "capsync-test", Version: "0.1.0"}

func mcpSession(t *testing.T, p *Poller) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	p.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Status(t *testing.T) {
	p, dev, _, _ := newPoller(t)
	ctx := context.Background()

	dev.PushResult(serverapi.Result{ID: "r1", Type: serverapi.ResultText, Content: "x"})
	p.Tick(ctx)

	session := mcpSession(t, p)
	text := mcpCallTool(t, session, "capsync_status")

	var resp struct {
		Online     bool   `json:"online"`
		EventCount int    `json:"event_count"`
		State      string `json:"state"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Online || resp.State != string(StateUnseen) {
		t.Errorf("status: got %+v", resp)
	}
}

func TestMCP_LatestResult(t *testing.T) {
	p, dev, _, _ := newPoller(t)
	ctx := context.Background()

	session := mcpSession(t, p)

	text := mcpCallTool(t, session, "capsync_latest_result")
	var empty struct {
		Result *serverapi.Result `json:"result"`
	}
	if err := json.Unmarshal([]byte(text), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if empty.Result != nil {
		t.Fatalf("before any result: got %+v", empty.Result)
	}

	dev.PushResult(serverapi.Result{ID: "r1", Type: serverapi.ResultText, Content: "**hi** there"})
	p.Tick(ctx)

	text = mcpCallTool(t, session, "capsync_latest_result")
	var resp struct {
		Result  *serverapi.Result `json:"result"`
		Preview string            `json:"preview"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Result == nil || resp.Result.ID != "r1" {
		t.Fatalf("result: got %+v", resp.Result)
	}
	if resp.Preview != "hi there" {
		t.Errorf("preview: got %q", resp.Preview)
	}
}

func TestMCP_Workflows(t *testing.T) {
	p, _, api, _ := newPoller(t)
	ctx := context.Background()

	if err := api.CreateWorkflow(ctx, "summarize for a@b.example"); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	p.Tick(ctx)

	session := mcpSession(t, p)
	text := mcpCallTool(t, session, "capsync_workflows")

	var resp struct {
		Workflows []WorkflowEntry `json:"workflows"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Workflows) != 1 || resp.Workflows[0].Query != "summarize for a@b.example" {
		t.Errorf("workflows: got %+v", resp.Workflows)
	}
}
