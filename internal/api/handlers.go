package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/contextservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/ticketservice"
)

// EventPublisher receives change notifications after successful mutations.
// A nil publisher disables them.
type EventPublisher interface {
	PublishContextEvent(kind, entityType, id string)
	PublishTicketEvent(kind, projectID, id string)
}

// Handler holds API route handlers.
type Handler struct {
	contexts *contextservice.Service
	tickets  *ticketservice.Service
	events   EventPublisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(contexts *contextservice.Service, tickets *ticketservice.Service, events EventPublisher) *Handler {
	return &Handler{contexts: contexts, tickets: tickets, events: events}
}

// entityType extracts and validates the {type} URL segment.
func entityType(r *http.Request) (models.EntityType, bool) {
	t := models.EntityType(chi.URLParam(r, "type"))
	return t, t.Valid()
}

func (h *Handler) notifyContext(kind string, e models.ContextEntity) {
	if h.events != nil {
		h.events.PublishContextEvent(kind, string(e.Type()), e.EntityID())
	}
}

func (h *Handler) notifyTicket(kind, projectID, id string) {
	if h.events != nil {
		h.events.PublishTicketEvent(kind, projectID, id)
	}
}

// CreateProject handles POST /api/projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.RepoID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("repo_id and name are required"))
		return
	}
	p, err := h.contexts.CreateProject(r.Context(), req.RepoID, req.Name, req.InheritContext)
	if err != nil {
		writeError(w, err, "create project failed", slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListProjects handles GET /api/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	repoID := r.URL.Query().Get("repo_id")
	if repoID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'repo_id' is required"))
		return
	}
	projects, err := h.contexts.ListProjects(r.Context(), repoID)
	if err != nil {
		writeError(w, err, "list projects failed", slog.String("repo_id", repoID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProject handles GET /api/projects/{projectID}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	p, err := h.contexts.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err, "get project failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProject handles PATCH /api/projects/{projectID}.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.InheritContext == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("inherit_context is required"))
		return
	}
	if err := h.contexts.SetProjectInheritance(r.Context(), id, *req.InheritContext); err != nil {
		writeError(w, err, "update project failed", slog.String("id", id))
		return
	}
	p, err := h.contexts.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err, "get project failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateContext handles POST /api/context/{type}.
func (h *Handler) CreateContext(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var scope models.Scope
	if err := json.Unmarshal(body, &scope); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	draft, err := decodeEntity(t, body)
	if err != nil {
		writeError(w, err, "decode entity failed")
		return
	}

	res, err := h.contexts.StoreContext(r.Context(), draft, scope)
	if err != nil {
		writeError(w, err, "store context failed", slog.String("type", string(t)))
		return
	}
	h.notifyContext("created", res.Entity)
	writeJSON(w, http.StatusCreated, StoreContextResponse{
		Entity:          res.Entity,
		EmbeddingSynced: res.EmbeddingSynced,
	})
}

// ListContext handles GET /api/context/{type}.
func (h *Handler) ListContext(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
		return
	}
	q := r.URL.Query()
	scope := models.Scope{RepoID: q.Get("repo_id"), ProjectID: q.Get("project_id")}
	if scope.RepoID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'repo_id' is required"))
		return
	}
	entities, err := h.contexts.ListContext(r.Context(), t, scope)
	if err != nil {
		writeError(w, err, "list context failed", slog.String("type", string(t)))
		return
	}
	writeJSON(w, http.StatusOK, ContextListResponse{Entities: entities, Total: len(entities)})
}

// GetContext handles GET /api/context/{type}/{id}.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
		return
	}
	id := chi.URLParam(r, "id")
	e, err := h.contexts.GetContext(r.Context(), t, id)
	if err != nil {
		writeError(w, err, "get context failed", slog.String("type", string(t)), slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateContext handles PATCH /api/context/{type}/{id}.
func (h *Handler) UpdateContext(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
		return
	}
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	patch, err := decodePatch(t, body)
	if err != nil {
		writeError(w, err, "decode patch failed")
		return
	}
	res, err := h.contexts.UpdateContext(r.Context(), t, id, patch)
	if err != nil {
		writeError(w, err, "update context failed", slog.String("type", string(t)), slog.String("id", id))
		return
	}
	h.notifyContext("updated", res.Entity)
	writeJSON(w, http.StatusOK, StoreContextResponse{
		Entity:          res.Entity,
		EmbeddingSynced: res.EmbeddingSynced,
	})
}

// DeleteContext handles DELETE /api/context/{type}/{id}.
func (h *Handler) DeleteContext(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
		return
	}
	id := chi.URLParam(r, "id")
	deleted, err := h.contexts.DeleteContext(r.Context(), t, id)
	if err != nil {
		writeError(w, err, "delete context failed", slog.String("type", string(t)), slog.String("id", id))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if h.events != nil {
		h.events.PublishContextEvent("deleted", string(t), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResyncContext handles POST /api/context/{type}/{id}/resync.
func (h *Handler) ResyncContext(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
		return
	}
	id := chi.URLParam(r, "id")
	synced, err := h.contexts.ResyncContext(r.Context(), t, id)
	if err != nil {
		writeError(w, err, "resync context failed", slog.String("type", string(t)), slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"embedding_synced": synced})
}

// Search handles POST /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	opts := search.Options{
		RepoID:        req.RepoID,
		ProjectID:     req.ProjectID,
		TopK:          req.TopK,
		MinSimilarity: req.MinSimilarity,
	}
	for _, s := range req.EntityTypes {
		t := models.EntityType(s)
		if !t.Valid() {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type "+strconv.Quote(s)))
			return
		}
		opts.EntityTypes = append(opts.EntityTypes, t)
	}

	matches, err := h.contexts.QueryContext(r.Context(), req.Query, opts)
	if err != nil {
		writeError(w, err, "search failed", slog.String("query", req.Query))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": matches,
		"total":   len(matches),
	})
}
