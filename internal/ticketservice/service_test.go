package ticketservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/testutil"
	"github.com/starford/ansuz/internal/ticketservice"
)

func newProject(t *testing.T, env *testutil.Env) string {
	t.Helper()
	proj, err := env.Contexts.CreateProject(context.Background(), "repo-a", "checkout", false)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return proj.ID
}

func TestStoreTicketsResolvesTitles(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)

	tickets, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "set up schema", Priority: models.PriorityHigh},
		{Title: "build api", DependsOn: []string{"set up schema"}},
		{Title: "write docs", DependsOn: []string{"build api", "set up schema"}},
	})
	if err != nil {
		t.Fatalf("StoreTickets: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("got %d tickets, want 3", len(tickets))
	}

	byTitle := make(map[string]models.Ticket, len(tickets))
	for _, tk := range tickets {
		byTitle[tk.Title] = tk
		if tk.Status != models.StatusPending {
			t.Errorf("%s status = %q, want pending", tk.Title, tk.Status)
		}
	}
	if byTitle["build api"].DependsOn[0] != byTitle["set up schema"].ID {
		t.Error("title dependency not resolved to id")
	}
	if len(byTitle["write docs"].DependsOn) != 2 {
		t.Errorf("write docs deps = %v", byTitle["write docs"].DependsOn)
	}
	if byTitle["build api"].Priority != models.PriorityMedium {
		t.Errorf("default priority = %q, want medium", byTitle["build api"].Priority)
	}
	if byTitle["set up schema"].Order != 0 || byTitle["write docs"].Order != 2 {
		t.Errorf("orders = %d, %d", byTitle["set up schema"].Order, byTitle["write docs"].Order)
	}
}

func TestStoreTicketsReferencesExistingTitle(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)

	first, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "set up schema"},
	})
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	second, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "build api", DependsOn: []string{"set up schema"}},
	})
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if second[0].DependsOn[0] != first[0].ID {
		t.Error("cross-batch dependency not resolved")
	}
	if second[0].Order != 1 {
		t.Errorf("order = %d, want 1", second[0].Order)
	}
}

func TestStoreTicketsRejectsCycle(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)

	_, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "a", DependsOn: []string{"c"}},
		{Title: "b", DependsOn: []string{"a"}},
		{Title: "c", DependsOn: []string{"b"}},
	})
	var cycle *apperr.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("err = %v, want CycleError", err)
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Error("cycle error should map to conflict")
	}

	// The whole batch was rejected.
	tickets, err := env.Tickets.ListTickets(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 0 {
		t.Errorf("%d tickets persisted from rejected batch", len(tickets))
	}
}

func TestStoreTicketsRejectsSelfDependency(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)

	_, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "a", DependsOn: []string{"a"}},
	})
	var selfDep *apperr.SelfDependencyError
	if !errors.As(err, &selfDep) {
		t.Fatalf("err = %v, want SelfDependencyError", err)
	}
}

func TestStoreTicketsValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)

	cases := []struct {
		name   string
		drafts []ticketservice.Draft
		want   error
	}{
		{"empty batch", nil, apperr.ErrValidation},
		{"missing title", []ticketservice.Draft{{}}, apperr.ErrValidation},
		{"bad priority", []ticketservice.Draft{{Title: "a", Priority: "urgent"}}, apperr.ErrValidation},
		{"unknown dependency", []ticketservice.Draft{{Title: "a", DependsOn: []string{"ghost"}}}, apperr.ErrValidation},
		{"duplicate in batch", []ticketservice.Draft{{Title: "a"}, {Title: "a"}}, apperr.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Tickets.StoreTickets(context.Background(), projectID, tc.drafts)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := env.Tickets.StoreTickets(context.Background(), "ghost-project",
		[]ticketservice.Draft{{Title: "a"}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ghost project err = %v, want ErrNotFound", err)
	}
}

func TestUpdateTicket(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)
	tickets, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "build api"},
	})
	if err != nil {
		t.Fatalf("StoreTickets: %v", err)
	}
	id := tickets[0].ID

	status := models.StatusInProgress
	updated, err := env.Tickets.UpdateTicket(context.Background(), projectID, "build api",
		ticketservice.Patch{Status: &status})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if updated.ID != id || updated.Status != models.StatusInProgress {
		t.Errorf("updated = %+v", updated)
	}

	bad := models.TicketStatus("paused")
	if _, err := env.Tickets.UpdateTicket(context.Background(), projectID, id,
		ticketservice.Patch{Status: &bad}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad status err = %v, want ErrValidation", err)
	}

	selfDeps := []string{id}
	_, err = env.Tickets.UpdateTicket(context.Background(), projectID, id,
		ticketservice.Patch{DependsOn: &selfDeps})
	var selfDep *apperr.SelfDependencyError
	if !errors.As(err, &selfDep) {
		t.Errorf("self-dep err = %v, want SelfDependencyError", err)
	}
}

func TestDeleteTicketForce(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)
	tickets, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "schema"},
		{Title: "api", DependsOn: []string{"schema"}},
	})
	if err != nil {
		t.Fatalf("StoreTickets: %v", err)
	}

	if _, err := env.Tickets.DeleteTicket(context.Background(), projectID, "schema", false); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("unforced delete err = %v, want ErrConflict", err)
	}

	res, err := env.Tickets.DeleteTicket(context.Background(), projectID, "schema", true)
	if err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if res.ID != tickets[0].ID || !res.Deleted {
		t.Errorf("result = %+v", res)
	}
	if len(res.DependentsRewritten) != 1 || res.DependentsRewritten[0] != tickets[1].ID {
		t.Errorf("rewritten = %v, want [%s]", res.DependentsRewritten, tickets[1].ID)
	}

	api, err := env.Tickets.GetTicket(context.Background(), projectID, "api")
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if len(api.DependsOn) != 0 {
		t.Errorf("dependent still references deleted ticket: %v", api.DependsOn)
	}

	// A leaf ticket deletes without force.
	if _, err := env.Tickets.DeleteTicket(context.Background(), projectID, "api", false); err != nil {
		t.Errorf("leaf delete: %v", err)
	}
}

func TestExecutionPlan(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)
	if _, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "schema", Priority: models.PriorityMedium},
		{Title: "hotfix", Priority: models.PriorityCritical},
		{Title: "api", Priority: models.PriorityCritical, DependsOn: []string{"schema"}},
	}); err != nil {
		t.Fatalf("StoreTickets: %v", err)
	}

	plan, err := env.Tickets.ExecutionPlan(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ExecutionPlan: %v", err)
	}
	if len(plan.Available) != 2 || len(plan.Blocked) != 1 {
		t.Fatalf("available = %d, blocked = %d; want 2, 1", len(plan.Available), len(plan.Blocked))
	}
	if plan.Recommended == nil || plan.Recommended.Title != "hotfix" {
		t.Errorf("recommended = %+v, want hotfix", plan.Recommended)
	}
	if plan.Blocked[0].Title != "api" {
		t.Errorf("blocked = %q, want api", plan.Blocked[0].Title)
	}

	// Completing the dependency unblocks the critical ticket, which now wins
	// the tie on creation order.
	done := models.StatusCompleted
	if _, err := env.Tickets.UpdateTicket(context.Background(), projectID, "schema",
		ticketservice.Patch{Status: &done}); err != nil {
		t.Fatalf("complete schema: %v", err)
	}
	plan, err = env.Tickets.ExecutionPlan(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ExecutionPlan after completion: %v", err)
	}
	if len(plan.Blocked) != 0 {
		t.Errorf("still blocked: %v", plan.Blocked)
	}
	if plan.Recommended == nil || plan.Recommended.Title != "hotfix" {
		t.Errorf("recommended = %+v, want hotfix (earlier order)", plan.Recommended)
	}

	if _, err := env.Tickets.ExecutionPlan(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ghost project err = %v, want ErrNotFound", err)
	}
}

func TestGraph(t *testing.T) {
	env := testutil.NewEnv(t)
	projectID := newProject(t, env)
	tickets, err := env.Tickets.StoreTickets(context.Background(), projectID, []ticketservice.Draft{
		{Title: "schema"},
		{Title: "api", DependsOn: []string{"schema"}},
	})
	if err != nil {
		t.Fatalf("StoreTickets: %v", err)
	}

	graph, err := env.Tickets.Graph(context.Background(), projectID)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	schema, api := tickets[0], tickets[1]
	if got := graph[schema.ID].Dependents; len(got) != 1 || got[0] != api.ID {
		t.Errorf("schema dependents = %v, want [%s]", got, api.ID)
	}
	if got := graph[api.ID].Dependencies; len(got) != 1 || got[0] != schema.ID {
		t.Errorf("api dependencies = %v, want [%s]", got, schema.ID)
	}
}
