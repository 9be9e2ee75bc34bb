package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/chunker"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/vecindex"
)

// Lifecycle keeps embedding chunks consistent with entity content. It owns
// the only cleanup path for chunks; nothing else writes the embeddings table.
type Lifecycle struct {
	db       *store.DB
	embedder Embedder
	index    *vecindex.Index
	chunkCfg chunker.Config
	logger   *slog.Logger
}

// NewLifecycle wires the chunker, hasher, embedder, store, and vector index
// together.
func NewLifecycle(db *store.DB, embedder Embedder, index *vecindex.Index, chunkCfg chunker.Config, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		db:       db,
		embedder: embedder,
		index:    index,
		chunkCfg: chunkCfg,
		logger:   logger,
	}
}

// Load hydrates the vector index from the embeddings table. Called once at
// startup.
func (l *Lifecycle) Load() error {
	chunks, err := l.db.AllChunks()
	if err != nil {
		return fmt.Errorf("embedding: load index: %w", err)
	}
	entries := make([]vecindex.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = indexEntry(c)
	}
	l.index.Load(entries)
	l.logger.Info("embedding index loaded", slog.Int("chunks", len(entries)))
	return nil
}

// Sync brings an entity's embeddings in line with its current content. When
// the content hash is unchanged this is a cheap no-op; otherwise every chunk
// is deleted and regenerated. Returns true when re-embedding happened.
//
// An embedding-model failure is returned to the caller to log; the entity
// write is never rolled back over it, and the next Sync retries from the
// same state because the stale hash was already cleared.
func (l *Lifecycle) Sync(ctx context.Context, e models.ContextEntity) (bool, error) {
	text := e.CanonicalText()
	newHash := checksum.SumString(text)

	storedHash, err := l.db.ChunkHash(e.Type(), e.EntityID())
	if err != nil {
		return false, err
	}
	if storedHash == newHash {
		return false, nil
	}

	// Content changed (or never embedded): drop the full chunk set first so
	// a chunk-count change cannot leave stale orphans behind.
	l.index.Remove(e.Type(), e.EntityID())
	if err := l.db.DeleteChunks(e.Type(), e.EntityID()); err != nil {
		return false, err
	}

	scope := e.EntityScope()
	pieces := chunker.Split(text, l.chunkCfg)
	rows := make([]store.EmbeddingChunk, 0, len(pieces))
	for _, p := range pieces {
		vec, err := l.embedder.Embed(ctx, p.Text)
		if err != nil {
			return false, fmt.Errorf("embedding: chunk %d of %s %s: %w", p.Index, e.Type(), e.EntityID(), err)
		}
		rows = append(rows, store.EmbeddingChunk{
			EntityType:  e.Type(),
			EntityID:    e.EntityID(),
			ChunkIndex:  p.Index,
			RepoID:      scope.RepoID,
			ProjectID:   scope.ProjectID,
			Vector:      vec,
			Model:       l.embedder.ModelName(),
			Dimension:   l.embedder.Dimension(),
			ContentHash: newHash,
			TotalChunks: p.TotalChunks,
			ChunkStart:  p.StartOffset,
			ChunkEnd:    p.EndOffset,
			CreatedAt:   time.Now().UTC(),
		})
	}

	if err := l.db.ReplaceChunks(e.Type(), e.EntityID(), rows); err != nil {
		return false, err
	}

	entries := make([]vecindex.Entry, len(rows))
	for i, r := range rows {
		entries[i] = indexEntry(r)
	}
	l.index.Add(entries...)

	l.logger.Debug("entity re-embedded",
		slog.String("type", string(e.Type())),
		slog.String("id", e.EntityID()),
		slog.Int("chunks", len(rows)))
	return true, nil
}

// Cleanup removes every chunk for an entity from both the vector index and
// the store. Idempotent: cleaning an entity with no embeddings succeeds.
// Index removal cannot fail, and a failed row delete leaves the index clean;
// the inconsistency is recovered by the next Sync or restart.
func (l *Lifecycle) Cleanup(entityType models.EntityType, entityID string) error {
	l.index.Remove(entityType, entityID)
	if err := l.db.DeleteChunks(entityType, entityID); err != nil {
		return err
	}
	return nil
}

func indexEntry(c store.EmbeddingChunk) vecindex.Entry {
	return vecindex.Entry{
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		ChunkIndex: c.ChunkIndex,
		RepoID:     c.RepoID,
		ProjectID:  c.ProjectID,
		Vector:     c.Vector,
		ChunkStart: c.ChunkStart,
		ChunkEnd:   c.ChunkEnd,
	}
}
