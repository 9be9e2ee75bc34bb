// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/contextservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/ticketservice"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp      *server.MCPServer
	contexts *contextservice.Service
	tickets  *ticketservice.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(contexts *contextservice.Service, tickets *ticketservice.Service) *Server {
	s := &Server{contexts: contexts, tickets: tickets}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("store_context",
		mcp.WithDescription("Store a context entity (business rule, glossary entry, pattern, "+
			"convention, or document). Fields MUST follow the contract; read it first via "+
			"the get_context_contract tool or the ansuz://context-format resource."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity kind: business_rule, glossary_entry, pattern, convention, document")),
		mcp.WithString("repo_id", mcp.Required(), mcp.Description("Repository identifier the entity belongs to")),
		mcp.WithString("project_id", mcp.Description("Optional project for project-scoped context")),
		mcp.WithString("fields", mcp.Required(), mcp.Description("JSON object with the kind's fields (see contract)")),
	), s.storeContext)

	s.mcp.AddTool(mcp.NewTool("query_context",
		mcp.WithDescription("Semantic search across stored context. Phrase the query as natural "+
			"language describing what you need to know, not as keywords."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language query")),
		mcp.WithString("repo_id", mcp.Required(), mcp.Description("Repository to search")),
		mcp.WithString("project_id", mcp.Description("Optional project; adds project-scoped context to the results")),
		mcp.WithString("entity_types", mcp.Description("Optional comma-separated kind filter")),
		mcp.WithString("top_k", mcp.Description("Max results, default 10")),
	), s.queryContext)

	s.mcp.AddTool(mcp.NewTool("get_context",
		mcp.WithDescription("Read one context entity by id."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity kind")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.getContext)

	s.mcp.AddTool(mcp.NewTool("update_context",
		mcp.WithDescription("Partially update a context entity. Only fields present in the "+
			"JSON object change; the embedding refreshes automatically when content changed."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity kind")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithString("fields", mcp.Required(), mcp.Description("JSON object with the fields to change")),
	), s.updateContext)

	s.mcp.AddTool(mcp.NewTool("delete_context",
		mcp.WithDescription("Delete a context entity and its embeddings."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity kind")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.deleteContext)

	s.mcp.AddTool(mcp.NewTool("get_context_contract",
		mcp.WithDescription("Returns the canonical Ansuz context and ticket contract. "+
			"Call this before storing context or tickets to ensure correct structure."),
	), s.getContextContract)

	s.mcp.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a project under a repo. Projects group tickets and may "+
			"inherit repo-level context."),
		mcp.WithString("repo_id", mcp.Required(), mcp.Description("Repository identifier")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("inherit_context", mcp.Description("\"true\" to allow project-scoped context writes")),
	), s.createProject)

	s.mcp.AddTool(mcp.NewTool("store_tickets",
		mcp.WithDescription("Store a batch of tickets for a project. depends_on references "+
			"sibling or existing tickets by exact title; cycles reject the whole batch."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to add tickets to")),
		mcp.WithString("tickets", mcp.Required(), mcp.Description("JSON array of ticket drafts (see contract)")),
	), s.storeTickets)

	s.mcp.AddTool(mcp.NewTool("update_ticket",
		mcp.WithDescription("Partially update a ticket; use it to move status as work progresses."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project the ticket belongs to")),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Ticket id or exact title")),
		mcp.WithString("fields", mcp.Required(), mcp.Description("JSON object: title, status, priority, depends_on, type")),
	), s.updateTicket)

	s.mcp.AddTool(mcp.NewTool("execution_plan",
		mcp.WithDescription("Compute the execution plan for a project: which tickets are "+
			"available, which are blocked, and the recommended next ticket."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to plan")),
	), s.executionPlan)

	s.mcp.AddTool(mcp.NewTool("next_ticket",
		mcp.WithDescription("Return just the recommended next ticket for a project, "+
			"highest priority first, creation order breaking ties."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to plan")),
	), s.nextTicket)

	// Resource: context format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://context-format", "Context & Ticket Contract",
			mcp.WithResourceDescription("Canonical entity and ticket draft format all stores must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) storeContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, fields, errRes := entityArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	repoID, err := req.RequireString("repo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope := models.Scope{RepoID: repoID}
	if p, pErr := req.RequireString("project_id"); pErr == nil {
		scope.ProjectID = p
	}

	draft, err := decodeEntity(t, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.contexts.StoreContext(ctx, draft, scope)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"entity":           res.Entity,
		"embedding_synced": res.EmbeddingSynced,
	}), nil
}

func (s *Server) queryContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repoID, err := req.RequireString("repo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := search.Options{RepoID: repoID}
	if p, pErr := req.RequireString("project_id"); pErr == nil {
		opts.ProjectID = p
	}
	if raw, tErr := req.RequireString("entity_types"); tErr == nil && raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t := models.EntityType(strings.TrimSpace(part))
			if !t.Valid() {
				return mcp.NewToolResultError(fmt.Sprintf("unknown entity type %q", part)), nil
			}
			opts.EntityTypes = append(opts.EntityTypes, t)
		}
	}
	if raw, kErr := req.RequireString("top_k"); kErr == nil && raw != "" {
		k, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return mcp.NewToolResultError("top_k must be an integer"), nil
		}
		opts.TopK = k
	}

	matches, err := s.contexts.QueryContext(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(matches), nil
}

func (s *Server) getContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, id, errRes := entityRef(req)
	if errRes != nil {
		return errRes, nil
	}
	e, err := s.contexts.GetContext(ctx, t, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e), nil
}

func (s *Server) updateContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, id, errRes := entityRef(req)
	if errRes != nil {
		return errRes, nil
	}
	fields, err := req.RequireString("fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch, err := decodePatch(t, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.contexts.UpdateContext(ctx, t, id, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"entity":           res.Entity,
		"embedding_synced": res.EmbeddingSynced,
	}), nil
}

func (s *Server) deleteContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, id, errRes := entityRef(req)
	if errRes != nil {
		return errRes, nil
	}
	deleted, err := s.contexts.DeleteContext(ctx, t, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !deleted {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) createProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := req.RequireString("repo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	inherit := false
	if raw, iErr := req.RequireString("inherit_context"); iErr == nil {
		inherit = raw == "true"
	}
	p, err := s.contexts.CreateProject(ctx, repoID, name, inherit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p), nil
}

func (s *Server) storeTickets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("tickets")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var drafts []ticketservice.Draft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		return mcp.NewToolResultError("tickets must be a JSON array of drafts"), nil
	}
	tickets, err := s.tickets.StoreTickets(ctx, projectID, drafts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tickets), nil
}

func (s *Server) updateTicket(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch ticketservice.Patch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return mcp.NewToolResultError("fields must be a JSON object"), nil
	}
	t, err := s.tickets.UpdateTicket(ctx, projectID, ref, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t), nil
}

func (s *Server) executionPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := s.tickets.ExecutionPlan(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(plan), nil
}

func (s *Server) nextTicket(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := s.tickets.ExecutionPlan(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if plan.Recommended == nil {
		return mcp.NewToolResultText("no ticket is currently available"), nil
	}
	return jsonResult(plan.Recommended), nil
}

func (s *Server) getContextContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContextFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://context-format",
			MIMEType: "text/markdown",
			Text:     ContextFormatContract,
		},
	}, nil
}

// entityArgs reads the type and fields arguments shared by store tools.
func entityArgs(req mcp.CallToolRequest) (models.EntityType, string, *mcp.CallToolResult) {
	raw, err := req.RequireString("type")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	t := models.EntityType(raw)
	if !t.Valid() {
		return "", "", mcp.NewToolResultError(fmt.Sprintf("unknown entity type %q", raw))
	}
	fields, err := req.RequireString("fields")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return t, fields, nil
}

// entityRef reads the type and id arguments shared by single-entity tools.
func entityRef(req mcp.CallToolRequest) (models.EntityType, string, *mcp.CallToolResult) {
	raw, err := req.RequireString("type")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	t := models.EntityType(raw)
	if !t.Valid() {
		return "", "", mcp.NewToolResultError(fmt.Sprintf("unknown entity type %q", raw))
	}
	id, err := req.RequireString("id")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return t, id, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func decodeEntity(t models.EntityType, fields string) (models.ContextEntity, error) {
	e, ok := models.NewEntity(t)
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
	if err := json.Unmarshal([]byte(fields), e); err != nil {
		return nil, fmt.Errorf("fields must be a JSON object matching the %s contract", t)
	}
	return e, nil
}

func decodePatch(t models.EntityType, fields string) (contextservice.Patch, error) {
	return contextservice.DecodePatch(t, []byte(fields))
}
