// Package ticketservice exposes the ticket operations: batch creation with
// title-based dependency resolution, partial updates, cascade-aware
// deletion, and execution planning.
package ticketservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/planner"
	"github.com/starford/ansuz/internal/store"
)

// Service coordinates ticket persistence and planning.
type Service struct {
	db     *store.DB
	logger *slog.Logger
}

// New creates a ticket service.
func New(db *store.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Draft is a ticket as submitted for creation. DependsOn references sibling
// drafts or existing project tickets by title.
type Draft struct {
	Title     string                `json:"title"`
	Priority  models.TicketPriority `json:"priority"`
	Type      string                `json:"type,omitempty"`
	DependsOn []string              `json:"depends_on,omitempty"`
}

// StoreTickets creates a batch of tickets together. Title-based forward
// references are resolved to ids in one pass; self-dependencies and cycles
// reject the entire batch before anything is persisted.
func (s *Service) StoreTickets(_ context.Context, projectID string, drafts []Draft) ([]models.Ticket, error) {
	if len(drafts) == 0 {
		return nil, apperr.Validation("ticket batch is empty")
	}
	if _, err := s.db.GetProject(projectID); err != nil {
		return nil, err
	}

	existing, err := s.db.ListTickets(projectID)
	if err != nil {
		return nil, err
	}
	existingByTitle := make(map[string]string, len(existing))
	for _, t := range existing {
		existingByTitle[t.Title] = t.ID
	}

	batchTitles := make(map[string]struct{}, len(drafts))
	planDrafts := make([]planner.Draft, len(drafts))
	for i, d := range drafts {
		if d.Title == "" {
			return nil, apperr.Validation("ticket title is required")
		}
		if d.Priority != "" && !d.Priority.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("invalid priority %q", d.Priority))
		}
		if _, dup := batchTitles[d.Title]; dup {
			return nil, apperr.Conflict(fmt.Sprintf("duplicate title %q in batch", d.Title))
		}
		if _, taken := existingByTitle[d.Title]; taken {
			return nil, apperr.Conflict(fmt.Sprintf("ticket title %q already exists in project", d.Title))
		}
		batchTitles[d.Title] = struct{}{}
		planDrafts[i] = planner.Draft{Title: d.Title, DependsOn: d.DependsOn}
	}

	// Self-dependency gets its dedicated error before cycle detection runs.
	if err := planner.CheckSelfDependency(planDrafts); err != nil {
		return nil, err
	}
	if err := planner.DetectCycle(planDrafts); err != nil {
		return nil, err
	}

	// Resolve titles to ids in one pass: batch siblings first, then existing
	// project tickets.
	idByTitle := make(map[string]string, len(drafts))
	for _, d := range drafts {
		idByTitle[d.Title] = uuid.NewString()
	}

	nextOrder, err := s.db.NextTicketOrder(projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tickets := make([]models.Ticket, len(drafts))
	for i, d := range drafts {
		deps := make([]string, 0, len(d.DependsOn))
		for _, depTitle := range d.DependsOn {
			id, ok := idByTitle[depTitle]
			if !ok {
				id, ok = existingByTitle[depTitle]
			}
			if !ok {
				return nil, apperr.Validation(fmt.Sprintf("ticket %q depends on unknown title %q", d.Title, depTitle))
			}
			deps = append(deps, id)
		}
		priority := d.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		tickets[i] = models.Ticket{
			ID:        idByTitle[d.Title],
			ProjectID: projectID,
			Title:     d.Title,
			Status:    models.StatusPending,
			Priority:  priority,
			Order:     nextOrder + i,
			DependsOn: deps,
			Type:      d.Type,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.db.CreateTickets(tickets); err != nil {
		return nil, err
	}
	s.logger.Info("tickets created",
		slog.String("project_id", projectID), slog.Int("count", len(tickets)))
	return tickets, nil
}

// Patch is a partial ticket update; nil fields are left unchanged.
type Patch struct {
	Title     *string                `json:"title,omitempty"`
	Status    *models.TicketStatus   `json:"status,omitempty"`
	Priority  *models.TicketPriority `json:"priority,omitempty"`
	DependsOn *[]string              `json:"depends_on,omitempty"`
	Type      *string                `json:"type,omitempty"`
}

// UpdateTicket applies a partial patch. Reassigned dependencies are
// re-validated against self-reference; on rejection the stored list is
// untouched.
func (s *Service) UpdateTicket(_ context.Context, projectID, ref string, patch Patch) (*models.Ticket, error) {
	t, err := s.db.GetTicket(projectID, ref)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("invalid status %q", *patch.Status))
		}
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("invalid priority %q", *patch.Priority))
		}
		t.Priority = *patch.Priority
	}
	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, apperr.Validation("ticket title must not be empty")
		}
		t.Title = *patch.Title
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.DependsOn != nil {
		for _, dep := range *patch.DependsOn {
			if dep == t.ID {
				return nil, &apperr.SelfDependencyError{Title: t.Title}
			}
		}
		t.DependsOn = *patch.DependsOn
	}

	t.UpdatedAt = time.Now().UTC()
	if err := s.db.UpdateTicket(*t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteResult reports a ticket deletion and which dependents had their
// dependency lists rewritten.
type DeleteResult struct {
	ID                  string   `json:"id"`
	Deleted             bool     `json:"deleted"`
	DependentsRewritten []string `json:"dependents_rewritten,omitempty"`
}

// DeleteTicket removes a ticket. When other tickets depend on it, the delete
// is rejected unless force is set, in which case every dependent's list is
// rewritten to drop the removed id.
func (s *Service) DeleteTicket(_ context.Context, projectID, ref string, force bool) (*DeleteResult, error) {
	t, err := s.db.GetTicket(projectID, ref)
	if err != nil {
		return nil, err
	}

	if !force {
		tickets, err := s.db.ListTickets(projectID)
		if err != nil {
			return nil, err
		}
		graph := planner.BuildGraph(tickets)
		if deps := graph[t.ID].Dependents; len(deps) > 0 {
			return nil, apperr.Conflict(fmt.Sprintf("ticket %q has %d dependents; pass force to delete", t.Title, len(deps)))
		}
	}

	rewritten, err := s.db.DeleteTicket(projectID, t.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{ID: t.ID, Deleted: true, DependentsRewritten: rewritten}, nil
}

// GetTicket resolves ref as an id or title within the project.
func (s *Service) GetTicket(_ context.Context, projectID, ref string) (*models.Ticket, error) {
	return s.db.GetTicket(projectID, ref)
}

// ListTickets returns a project's tickets in creation order.
func (s *Service) ListTickets(_ context.Context, projectID string) ([]models.Ticket, error) {
	return s.db.ListTickets(projectID)
}

// ExecutionPlan computes the available/blocked partition and the top
// recommendation for a project.
func (s *Service) ExecutionPlan(_ context.Context, projectID string) (*planner.ExecutionPlan, error) {
	if _, err := s.db.GetProject(projectID); err != nil {
		return nil, err
	}
	tickets, err := s.db.ListTickets(projectID)
	if err != nil {
		return nil, err
	}
	plan := planner.Compute(tickets)
	return &plan, nil
}

// Graph returns the dependency adjacency map for a project.
func (s *Service) Graph(_ context.Context, projectID string) (map[string]*planner.Node, error) {
	tickets, err := s.db.ListTickets(projectID)
	if err != nil {
		return nil, err
	}
	return planner.BuildGraph(tickets), nil
}
