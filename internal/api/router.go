package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/contextservice"
	"github.com/starford/ansuz/internal/ticketservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(contexts *contextservice.Service, tickets *ticketservice.Service, events EventPublisher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(contexts, tickets, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Projects.
	r.Post("/projects", h.CreateProject)
	r.Get("/projects", h.ListProjects)
	r.Get("/projects/{projectID}", h.GetProject)
	r.Patch("/projects/{projectID}", h.UpdateProject)

	// Context entities, one CRUD surface per kind.
	r.Post("/context/{type}", h.CreateContext)
	r.Get("/context/{type}", h.ListContext)
	r.Get("/context/{type}/{id}", h.GetContext)
	r.Patch("/context/{type}/{id}", h.UpdateContext)
	r.Delete("/context/{type}/{id}", h.DeleteContext)
	r.Post("/context/{type}/{id}/resync", h.ResyncContext)

	// Semantic search.
	r.Post("/search", h.Search)

	// Tickets and planning.
	r.Post("/projects/{projectID}/tickets", h.StoreTickets)
	r.Get("/projects/{projectID}/tickets", h.ListTickets)
	r.Get("/projects/{projectID}/tickets/{ref}", h.GetTicket)
	r.Patch("/projects/{projectID}/tickets/{ref}", h.UpdateTicket)
	r.Delete("/projects/{projectID}/tickets/{ref}", h.DeleteTicket)
	r.Get("/projects/{projectID}/plan", h.ExecutionPlan)
	r.Get("/projects/{projectID}/graph", h.TicketGraph)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
