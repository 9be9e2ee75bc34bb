// Package contextservice exposes the context-store operations: typed CRUD
// over the five entity kinds with the shared embedding lifecycle, plus
// semantic queries.
package contextservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/embedding"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/store"
)

// Service coordinates the store, embedding lifecycle, and search.
type Service struct {
	db        *store.DB
	lifecycle *embedding.Lifecycle
	searcher  *search.Searcher
	logger    *slog.Logger
}

// New creates a context service.
func New(db *store.DB, lifecycle *embedding.Lifecycle, searcher *search.Searcher, logger *slog.Logger) *Service {
	return &Service{db: db, lifecycle: lifecycle, searcher: searcher, logger: logger}
}

// StoreResult reports a context write. EmbeddingSynced is false when the
// embedding model failed; the entity is persisted regardless and becomes
// searchable on the next successful sync.
type StoreResult struct {
	Entity          models.ContextEntity `json:"entity"`
	EmbeddingSynced bool                 `json:"embedding_synced"`
}

// CreateProject registers a project under a repo.
func (s *Service) CreateProject(_ context.Context, repoID, name string, inheritContext bool) (*models.Project, error) {
	if repoID == "" || name == "" {
		return nil, apperr.Validation("repo id and project name are required")
	}
	now := time.Now().UTC()
	p := models.Project{
		ID:             uuid.NewString(),
		RepoID:         repoID,
		Name:           name,
		InheritContext: inheritContext,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.CreateProject(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject returns a project by id.
func (s *Service) GetProject(_ context.Context, id string) (*models.Project, error) {
	return s.db.GetProject(id)
}

// ListProjects returns every project under a repo.
func (s *Service) ListProjects(_ context.Context, repoID string) ([]models.Project, error) {
	return s.db.ListProjects(repoID)
}

// SetProjectInheritance flips whether a project may hold its own context.
func (s *Service) SetProjectInheritance(_ context.Context, id string, inherit bool) error {
	return s.db.SetProjectInheritance(id, inherit)
}

// StoreContext validates and persists a new entity, then syncs embeddings.
// The draft's Meta is filled here; callers only supply scope and fields.
// Project-scoped writes require the target project's inheritance flag.
func (s *Service) StoreContext(ctx context.Context, draft models.ContextEntity, scope models.Scope) (*StoreResult, error) {
	if err := validateFields(draft); err != nil {
		return nil, err
	}
	if err := s.checkScope(scope); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	setMeta(draft, models.Meta{
		ID:        uuid.NewString(),
		Scope:     scope,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := s.db.CreateContext(draft); err != nil {
		return nil, err
	}
	return &StoreResult{Entity: draft, EmbeddingSynced: s.sync(ctx, draft)}, nil
}

// UpdateContext applies a partial patch to an entity. Only supplied fields
// change. EmbeddingSynced reports whether a content change triggered a
// successful re-embed.
func (s *Service) UpdateContext(ctx context.Context, t models.EntityType, id string, patch Patch) (*StoreResult, error) {
	entity, err := s.db.GetContext(t, id)
	if err != nil {
		return nil, err
	}
	if err := applyPatch(entity, patch); err != nil {
		return nil, err
	}
	if err := validateFields(entity); err != nil {
		return nil, err
	}
	touch(entity)
	if err := s.db.UpdateContext(entity); err != nil {
		return nil, err
	}
	return &StoreResult{Entity: entity, EmbeddingSynced: s.sync(ctx, entity)}, nil
}

// DeleteContext removes an entity and all of its embedding chunks. Deleting
// an already-deleted entity returns deleted=false without error.
func (s *Service) DeleteContext(_ context.Context, t models.EntityType, id string) (bool, error) {
	if !t.Valid() {
		return false, apperr.Validation(fmt.Sprintf("unknown entity type %q", t))
	}
	// Chunk cleanup first so a crash between the two steps leaves an entity
	// without embeddings (recoverable by re-sync) rather than orphan chunks.
	if err := s.lifecycle.Cleanup(t, id); err != nil {
		return false, err
	}
	return s.db.DeleteContext(t, id)
}

// GetContext loads one entity.
func (s *Service) GetContext(_ context.Context, t models.EntityType, id string) (models.ContextEntity, error) {
	return s.db.GetContext(t, id)
}

// ListContext lists entities of one kind visible in scope.
func (s *Service) ListContext(_ context.Context, t models.EntityType, scope models.Scope) ([]models.ContextEntity, error) {
	return s.db.ListContext(t, scope.RepoID, scope.ProjectID)
}

// QueryContext runs a semantic search.
func (s *Service) QueryContext(ctx context.Context, query string, opts search.Options) ([]search.Match, error) {
	return s.searcher.Search(ctx, query, opts)
}

// ResyncContext re-runs the embedding lifecycle for one entity, used to
// recover entities whose last sync degraded.
func (s *Service) ResyncContext(ctx context.Context, t models.EntityType, id string) (bool, error) {
	entity, err := s.db.GetContext(t, id)
	if err != nil {
		return false, err
	}
	return s.lifecycle.Sync(ctx, entity)
}

// sync runs the embedding lifecycle, downgrading failures to a warning. The
// write itself already succeeded; an unsearchable entity is recoverable, a
// rolled-back write is not.
func (s *Service) sync(ctx context.Context, e models.ContextEntity) bool {
	if _, err := s.lifecycle.Sync(ctx, e); err != nil {
		s.logger.Warn("embedding sync degraded",
			slog.String("type", string(e.Type())),
			slog.String("id", e.EntityID()),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// checkScope enforces the inheritance invariant: project-scoped writes need
// an existing project with inheritance enabled.
func (s *Service) checkScope(scope models.Scope) error {
	if scope.RepoID == "" {
		return apperr.Validation("repo id is required")
	}
	if scope.ProjectID == "" {
		return nil
	}
	p, err := s.db.GetProject(scope.ProjectID)
	if err != nil {
		return err
	}
	if !p.InheritContext {
		return apperr.Conflict(fmt.Sprintf("project %q has context inheritance disabled", scope.ProjectID))
	}
	return nil
}

// validateFields enforces the per-kind required fields before any write.
func validateFields(e models.ContextEntity) error {
	var err error
	switch v := e.(type) {
	case *models.BusinessRule:
		err = validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
			validation.Field(&v.Description, validation.Required),
		)
	case *models.GlossaryEntry:
		err = validation.ValidateStruct(v,
			validation.Field(&v.Term, validation.Required),
			validation.Field(&v.Definition, validation.Required),
		)
	case *models.Pattern:
		err = validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
			validation.Field(&v.Description, validation.Required),
		)
	case *models.Convention:
		err = validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
			validation.Field(&v.Description, validation.Required),
		)
	case *models.Document:
		err = validation.ValidateStruct(v,
			validation.Field(&v.Title, validation.Required),
			validation.Field(&v.Content, validation.Required),
		)
	default:
		return apperr.Validation("unknown entity type")
	}
	if err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

func setMeta(e models.ContextEntity, m models.Meta) {
	switch v := e.(type) {
	case *models.BusinessRule:
		v.Meta = m
	case *models.GlossaryEntry:
		v.Meta = m
	case *models.Pattern:
		v.Meta = m
	case *models.Convention:
		v.Meta = m
	case *models.Document:
		v.Meta = m
	}
}

func touch(e models.ContextEntity) {
	now := time.Now().UTC()
	switch v := e.(type) {
	case *models.BusinessRule:
		v.UpdatedAt = now
	case *models.GlossaryEntry:
		v.UpdatedAt = now
	case *models.Pattern:
		v.UpdatedAt = now
	case *models.Convention:
		v.UpdatedAt = now
	case *models.Document:
		v.UpdatedAt = now
	}
}
