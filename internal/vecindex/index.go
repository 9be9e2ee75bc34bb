// Package vecindex provides an in-memory cosine-similarity index over the
// stored embedding chunks. The backing structure is a flat slice scanned
// linearly, which is plenty for a local single-user store; callers only
// depend on the add/remove/query contract.
package vecindex

import (
	"math"
	"sync"

	"github.com/starford/ansuz/internal/models"
)

// Entry is one indexed chunk vector with the metadata needed for scoping
// and hydration.
type Entry struct {
	EntityType models.EntityType
	EntityID   string
	ChunkIndex int
	RepoID     string
	ProjectID  string
	Vector     []float32
	ChunkStart int
	ChunkEnd   int
}

// Hit is a query match with its cosine similarity score.
type Hit struct {
	Entry
	Similarity float64
}

// QueryOptions filters candidates before scoring. ProjectID scoping is
// additive: empty means repo-level entries only; set means repo-level plus
// that project's entries.
type QueryOptions struct {
	RepoID      string
	ProjectID   string
	EntityTypes []models.EntityType
	MinScore    float64
}

// Index holds the chunk vectors. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Load replaces the index contents, used at startup to hydrate from the
// embeddings table.
func (ix *Index) Load(entries []Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = append(ix.entries[:0], entries...)
}

// Add inserts chunk entries for an entity. Callers remove the old entries
// first when re-embedding.
func (ix *Index) Add(entries ...Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = append(ix.entries, entries...)
}

// Remove drops every chunk entry for an entity. Removing an entity that is
// not indexed is a no-op.
func (ix *Index) Remove(entityType models.EntityType, entityID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	kept := ix.entries[:0]
	for _, e := range ix.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			continue
		}
		kept = append(kept, e)
	}
	ix.entries = kept
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Query scores every candidate against the query vector and returns hits at
// or above MinScore, unsorted; ranking is the caller's concern.
func (ix *Index) Query(query []float32, opts QueryOptions) []Hit {
	typeSet := make(map[models.EntityType]struct{}, len(opts.EntityTypes))
	for _, t := range opts.EntityTypes {
		typeSet[t] = struct{}{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var hits []Hit
	for _, e := range ix.entries {
		if e.RepoID != opts.RepoID {
			continue
		}
		if e.ProjectID != "" && e.ProjectID != opts.ProjectID {
			continue
		}
		if len(typeSet) > 0 {
			if _, ok := typeSet[e.EntityType]; !ok {
				continue
			}
		}
		sim := CosineSimilarity(query, e.Vector)
		if sim < opts.MinScore {
			continue
		}
		hits = append(hits, Hit{Entry: e, Similarity: sim})
	}
	return hits
}

// CosineSimilarity computes the cosine similarity of two vectors, returning
// 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
