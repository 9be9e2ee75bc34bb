// Package search answers which stored context is semantically relevant to a
// query, with inheritance-aware scoping and provenance.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/embedding"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/vecindex"
)

// Provenance values for matches.
const (
	ProvenanceRepo    = "repo"
	ProvenanceProject = "project"
)

// Options scope and bound a search.
type Options struct {
	RepoID        string
	ProjectID     string
	EntityTypes   []models.EntityType
	TopK          int
	MinSimilarity float64
}

// Match is one ranked result hydrated to its owning entity. Chunk offsets
// point into the entity's canonical text so long documents can show an
// excerpt rather than everything.
type Match struct {
	Entity     models.ContextEntity `json:"entity"`
	EntityType models.EntityType    `json:"entity_type"`
	Similarity float64              `json:"similarity"`
	Provenance string               `json:"provenance"`
	ChunkIndex int                  `json:"chunk_index"`
	ChunkStart int                  `json:"chunk_start"`
	ChunkEnd   int                  `json:"chunk_end"`
	Excerpt    string               `json:"excerpt,omitempty"`
}

// Searcher runs semantic queries against the vector index and hydrates
// results from the store.
type Searcher struct {
	db       *store.DB
	embedder embedding.Embedder
	index    *vecindex.Index
	logger   *slog.Logger

	defaultTopK   int
	minSimilarity float64
}

// New creates a Searcher.
func New(db *store.DB, embedder embedding.Embedder, index *vecindex.Index, logger *slog.Logger) *Searcher {
	return &Searcher{db: db, embedder: embedder, index: index, logger: logger, defaultTopK: 10}
}

// SetDefaults overrides the fallbacks applied when a query omits top-k or
// min-similarity.
func (s *Searcher) SetDefaults(topK int, minSimilarity float64) {
	if topK > 0 {
		s.defaultTopK = topK
	}
	s.minSimilarity = minSimilarity
}

// Search embeds the query once, scores every in-scope chunk, and returns the
// top matches sorted by similarity (ties broken by most recent update). The
// query embedding is never cached across calls.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("query must not be empty")
	}
	if opts.RepoID == "" {
		return nil, apperr.Validation("repo id is required")
	}
	if opts.TopK <= 0 {
		opts.TopK = s.defaultTopK
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = s.minSimilarity
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	hits := s.index.Query(queryVec, vecindex.QueryOptions{
		RepoID:      opts.RepoID,
		ProjectID:   opts.ProjectID,
		EntityTypes: opts.EntityTypes,
		MinScore:    opts.MinSimilarity,
	})

	// Keep only the best-scoring chunk per entity so one long document does
	// not crowd out the rest of the top-K.
	type key struct {
		t  models.EntityType
		id string
	}
	best := make(map[key]vecindex.Hit, len(hits))
	for _, h := range hits {
		k := key{h.EntityType, h.EntityID}
		if cur, ok := best[k]; !ok || h.Similarity > cur.Similarity {
			best[k] = h
		}
	}

	matches := make([]Match, 0, len(best))
	for k, h := range best {
		entity, err := s.db.GetContext(k.t, k.id)
		if err != nil {
			// Index can briefly run ahead of the store; skip rather than fail
			// the whole query.
			s.logger.Debug("search: hydrate miss",
				slog.String("type", string(k.t)), slog.String("id", k.id))
			continue
		}
		matches = append(matches, Match{
			Entity:     entity,
			EntityType: k.t,
			Similarity: h.Similarity,
			Provenance: provenance(h.ProjectID),
			ChunkIndex: h.ChunkIndex,
			ChunkStart: h.ChunkStart,
			ChunkEnd:   h.ChunkEnd,
			Excerpt:    excerpt(entity, h.ChunkStart, h.ChunkEnd),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entity.Updated().After(matches[j].Entity.Updated())
	})
	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches, nil
}

func provenance(projectID string) string {
	if projectID == "" {
		return ProvenanceRepo
	}
	return ProvenanceProject
}

// excerpt slices the matched chunk's byte range out of the canonical text.
func excerpt(e models.ContextEntity, start, end int) string {
	text := e.CanonicalText()
	if start < 0 || end > len(text) || start >= end {
		return ""
	}
	return text[start:end]
}
