package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/ticketservice"
)

// StoreTickets handles POST /api/projects/{projectID}/tickets.
// The whole batch lands or none of it does.
func (h *Handler) StoreTickets(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req StoreTicketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	tickets, err := h.tickets.StoreTickets(r.Context(), projectID, req.Tickets)
	if err != nil {
		writeError(w, err, "store tickets failed", slog.String("project_id", projectID))
		return
	}
	for _, t := range tickets {
		h.notifyTicket("created", projectID, t.ID)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"tickets": tickets,
		"total":   len(tickets),
	})
}

// ListTickets handles GET /api/projects/{projectID}/tickets.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	tickets, err := h.tickets.ListTickets(r.Context(), projectID)
	if err != nil {
		writeError(w, err, "list tickets failed", slog.String("project_id", projectID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tickets": tickets,
		"total":   len(tickets),
	})
}

// GetTicket handles GET /api/projects/{projectID}/tickets/{ref}.
// ref may be a ticket id or an exact title.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ref := chi.URLParam(r, "ref")
	t, err := h.tickets.GetTicket(r.Context(), projectID, ref)
	if err != nil {
		writeError(w, err, "get ticket failed", slog.String("ref", ref))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTicket handles PATCH /api/projects/{projectID}/tickets/{ref}.
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ref := chi.URLParam(r, "ref")
	var patch ticketservice.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	t, err := h.tickets.UpdateTicket(r.Context(), projectID, ref, patch)
	if err != nil {
		writeError(w, err, "update ticket failed", slog.String("ref", ref))
		return
	}
	h.notifyTicket("updated", projectID, t.ID)
	writeJSON(w, http.StatusOK, t)
}

// DeleteTicket handles DELETE /api/projects/{projectID}/tickets/{ref}.
// Deleting a ticket other tickets depend on requires ?force=true; the
// dependents then have the removed id dropped from their lists.
func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ref := chi.URLParam(r, "ref")
	force := r.URL.Query().Get("force") == "true"

	res, err := h.tickets.DeleteTicket(r.Context(), projectID, ref, force)
	if err != nil {
		writeError(w, err, "delete ticket failed", slog.String("ref", ref))
		return
	}
	h.notifyTicket("deleted", projectID, res.ID)
	writeJSON(w, http.StatusOK, res)
}

// ExecutionPlan handles GET /api/projects/{projectID}/plan.
func (h *Handler) ExecutionPlan(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	plan, err := h.tickets.ExecutionPlan(r.Context(), projectID)
	if err != nil {
		writeError(w, err, "execution plan failed", slog.String("project_id", projectID))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// TicketGraph handles GET /api/projects/{projectID}/graph.
func (h *Handler) TicketGraph(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	graph, err := h.tickets.Graph(r.Context(), projectID)
	if err != nil {
		writeError(w, err, "ticket graph failed", slog.String("project_id", projectID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": graph})
}
