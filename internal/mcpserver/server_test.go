package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	return New(env.Contexts, env.Tickets), env
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "store_context":
		result, err = srv.storeContext(ctx, req)
	case "query_context":
		result, err = srv.queryContext(ctx, req)
	case "get_context":
		result, err = srv.getContext(ctx, req)
	case "update_context":
		result, err = srv.updateContext(ctx, req)
	case "delete_context":
		result, err = srv.deleteContext(ctx, req)
	case "create_project":
		result, err = srv.createProject(ctx, req)
	case "store_tickets":
		result, err = srv.storeTickets(ctx, req)
	case "update_ticket":
		result, err = srv.updateTicket(ctx, req)
	case "execution_plan":
		result, err = srv.executionPlan(ctx, req)
	case "next_ticket":
		result, err = srv.nextTicket(ctx, req)
	case "get_context_contract":
		result, err = srv.getContextContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestStoreAndGetContext(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "store_context", map[string]interface{}{
		"type":    "business_rule",
		"repo_id": "repo-1",
		"fields":  `{"name": "Refund window", "description": "Refunds within 30 days only."}`,
	})
	if r.IsError {
		t.Fatalf("store errored: %s", resultText(r))
	}
	var stored struct {
		Entity          models.BusinessRule `json:"entity"`
		EmbeddingSynced bool                `json:"embedding_synced"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &stored); err != nil {
		t.Fatal(err)
	}
	if stored.Entity.ID == "" {
		t.Fatal("stored entity has no id")
	}
	if !stored.EmbeddingSynced {
		t.Error("embedding_synced = false, want true")
	}

	r = callTool(t, srv, "get_context", map[string]interface{}{
		"type": "business_rule", "id": stored.Entity.ID,
	})
	if r.IsError {
		t.Fatalf("get errored: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Refund window") {
		t.Errorf("get result missing rule name: %q", resultText(r))
	}
}

func TestStoreContextBadFields(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "store_context", map[string]interface{}{
		"type":    "business_rule",
		"repo_id": "repo-1",
		"fields":  `not json`,
	})
	if !r.IsError {
		t.Error("expected error for malformed fields")
	}

	// Missing required description.
	r = callTool(t, srv, "store_context", map[string]interface{}{
		"type":    "business_rule",
		"repo_id": "repo-1",
		"fields":  `{"name": "No description"}`,
	})
	if !r.IsError {
		t.Error("expected validation error for missing description")
	}
}

func TestQueryContext(t *testing.T) {
	srv, _ := testServer(t)

	callTool(t, srv, "store_context", map[string]interface{}{
		"type":    "glossary_entry",
		"repo_id": "repo-1",
		"fields":  `{"term": "SKU", "definition": "Stock keeping unit, the canonical product identifier."}`,
	})

	r := callTool(t, srv, "query_context", map[string]interface{}{
		"query":   "product identifier terminology",
		"repo_id": "repo-1",
	})
	if r.IsError {
		t.Fatalf("query errored: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "SKU") {
		t.Errorf("query result missing entry: %q", resultText(r))
	}
}

func TestUpdateAndDeleteContext(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "store_context", map[string]interface{}{
		"type":    "pattern",
		"repo_id": "repo-1",
		"fields":  `{"name": "Outbox", "description": "Transactional message dispatch."}`,
	})
	var stored struct {
		Entity models.Pattern `json:"entity"`
	}
	_ = json.Unmarshal([]byte(resultText(r)), &stored)

	r = callTool(t, srv, "update_context", map[string]interface{}{
		"type":   "pattern",
		"id":     stored.Entity.ID,
		"fields": `{"when_to_use": "Whenever a write and a publish must not diverge."}`,
	})
	if r.IsError {
		t.Fatalf("update errored: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "must not diverge") {
		t.Errorf("update result missing new field: %q", resultText(r))
	}

	r = callTool(t, srv, "delete_context", map[string]interface{}{
		"type": "pattern", "id": stored.Entity.ID,
	})
	if r.IsError {
		t.Fatalf("delete errored: %s", resultText(r))
	}

	r = callTool(t, srv, "get_context", map[string]interface{}{
		"type": "pattern", "id": stored.Entity.ID,
	})
	if !r.IsError {
		t.Error("expected error reading deleted entity")
	}
}

func TestTicketFlow(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_project", map[string]interface{}{
		"repo_id": "repo-1", "name": "backend",
	})
	if r.IsError {
		t.Fatalf("create_project errored: %s", resultText(r))
	}
	var proj models.Project
	_ = json.Unmarshal([]byte(resultText(r)), &proj)

	r = callTool(t, srv, "store_tickets", map[string]interface{}{
		"project_id": proj.ID,
		"tickets": `[{"title": "Design schema", "priority": "high"},
			{"title": "Write migrations", "priority": "critical", "depends_on": ["Design schema"]}]`,
	})
	if r.IsError {
		t.Fatalf("store_tickets errored: %s", resultText(r))
	}

	r = callTool(t, srv, "next_ticket", map[string]interface{}{"project_id": proj.ID})
	if r.IsError {
		t.Fatalf("next_ticket errored: %s", resultText(r))
	}
	var next models.Ticket
	_ = json.Unmarshal([]byte(resultText(r)), &next)
	if next.Title != "Design schema" {
		t.Errorf("next ticket = %q, want the unblocked root", next.Title)
	}

	// Complete the root; the dependent becomes the recommendation.
	r = callTool(t, srv, "update_ticket", map[string]interface{}{
		"project_id": proj.ID,
		"ref":        "Design schema",
		"fields":     `{"status": "completed"}`,
	})
	if r.IsError {
		t.Fatalf("update_ticket errored: %s", resultText(r))
	}

	r = callTool(t, srv, "next_ticket", map[string]interface{}{"project_id": proj.ID})
	_ = json.Unmarshal([]byte(resultText(r)), &next)
	if next.Title != "Write migrations" {
		t.Errorf("next ticket after completion = %q", next.Title)
	}
}

func TestTicketCycleRejectedOverMCP(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_project", map[string]interface{}{
		"repo_id": "repo-1", "name": "cyclic",
	})
	var proj models.Project
	_ = json.Unmarshal([]byte(resultText(r)), &proj)

	r = callTool(t, srv, "store_tickets", map[string]interface{}{
		"project_id": proj.ID,
		"tickets":    `[{"title": "A", "depends_on": ["B"]}, {"title": "B", "depends_on": ["A"]}]`,
	})
	if !r.IsError {
		t.Fatal("expected cycle rejection")
	}
	if !strings.Contains(resultText(r), "cycle") {
		t.Errorf("error should name the cycle: %q", resultText(r))
	}

	r = callTool(t, srv, "next_ticket", map[string]interface{}{"project_id": proj.ID})
	if resultText(r) != "no ticket is currently available" {
		t.Errorf("next_ticket = %q, want the empty-plan message", resultText(r))
	}
}

func TestGetContextContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_context_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Context & Ticket Contract") {
		t.Error("contract text missing")
	}
}
