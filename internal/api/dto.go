package api

import (
	"encoding/json"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/contextservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/ticketservice"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	RepoID         string `json:"repo_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	InheritContext bool   `json:"inherit_context"`
}

// UpdateProjectRequest toggles a project's context inheritance.
type UpdateProjectRequest struct {
	InheritContext *bool `json:"inherit_context"`
}

// SearchRequest is the request body for semantic search.
type SearchRequest struct {
	Query         string   `json:"query" validate:"required"`
	RepoID        string   `json:"repo_id" validate:"required"`
	ProjectID     string   `json:"project_id,omitempty"`
	EntityTypes   []string `json:"entity_types,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	MinSimilarity float64  `json:"min_similarity,omitempty"`
}

// StoreTicketsRequest is the request body for batch ticket creation.
type StoreTicketsRequest struct {
	Tickets []ticketservice.Draft `json:"tickets" validate:"required"`
}

// ContextListResponse wraps entity listings.
type ContextListResponse struct {
	Entities []models.ContextEntity `json:"entities" validate:"required"`
	Total    int                    `json:"total" validate:"required"`
}

// StoreContextResponse reports a stored entity and whether its embedding
// synced. embedding_synced false means the write landed but the vector is
// stale until the next sync.
type StoreContextResponse struct {
	Entity          any  `json:"entity"`
	EmbeddingSynced bool `json:"embedding_synced"`
}

// decodeEntity unmarshals a flat request body into the entity struct for t.
// Scope and identity arrive separately; only the kind's own fields are read
// from data.
func decodeEntity(t models.EntityType, data []byte) (models.ContextEntity, error) {
	e, ok := models.NewEntity(t)
	if !ok {
		return nil, apperr.Validation("unknown entity type " + string(t))
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, apperr.Validation("invalid JSON body")
	}
	return e, nil
}

// decodePatch unmarshals a request body into the patch type for t.
func decodePatch(t models.EntityType, data []byte) (contextservice.Patch, error) {
	return contextservice.DecodePatch(t, data)
}
