package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// EmbeddingChunk is one stored chunk vector. The composite key is
// (EntityType, EntityID, ChunkIndex); ContentHash is shared by every chunk
// of one entity and gates re-embedding.
type EmbeddingChunk struct {
	EntityType  models.EntityType
	EntityID    string
	ChunkIndex  int
	RepoID      string
	ProjectID   string
	Vector      []float32
	Model       string
	Dimension   int
	ContentHash string
	TotalChunks int
	ChunkStart  int
	ChunkEnd    int
	CreatedAt   time.Time
}

// ReplaceChunks atomically swaps every stored chunk for an entity with the
// given set. Chunks are never patched individually; a content change always
// rewrites the full set so stale orphans cannot survive a chunk-count change.
func (db *DB) ReplaceChunks(entityType models.EntityType, entityID string, chunks []EmbeddingChunk) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM embeddings WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID); err != nil {
		return fmt.Errorf("store: clear chunks: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO embeddings (entity_type, entity_id, chunk_index, repo_id, project_id,
			vector, model, dimension, content_hash, total_chunks, chunk_start, chunk_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		vec, err := json.Marshal(c.Vector)
		if err != nil {
			return fmt.Errorf("store: encode vector: %w", err)
		}
		if _, err := stmt.Exec(c.EntityType, c.EntityID, c.ChunkIndex, c.RepoID, c.ProjectID,
			string(vec), c.Model, c.Dimension, c.ContentHash, c.TotalChunks,
			c.ChunkStart, c.ChunkEnd, c.CreatedAt); err != nil {
			return fmt.Errorf("store: insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteChunks removes every chunk for an entity. Deleting an entity with no
// chunks is not an error.
func (db *DB) DeleteChunks(entityType models.EntityType, entityID string) error {
	_, err := db.conn.Exec(`DELETE FROM embeddings WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID)
	if err != nil {
		return fmt.Errorf("store: delete chunks: %w", err)
	}
	return nil
}

// ChunkHash returns the stored content hash for an entity (from chunk 0), or
// empty string when the entity has no embeddings yet.
func (db *DB) ChunkHash(entityType models.EntityType, entityID string) (string, error) {
	var hash string
	err := db.conn.QueryRow(`
		SELECT content_hash FROM embeddings
		WHERE entity_type = ? AND entity_id = ? AND chunk_index = 0
	`, entityType, entityID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: chunk hash: %w", err)
	}
	return hash, nil
}

// ChunksFor returns the stored chunks for one entity ordered by chunk index.
func (db *DB) ChunksFor(entityType models.EntityType, entityID string) ([]EmbeddingChunk, error) {
	return db.queryChunks(`WHERE entity_type = ? AND entity_id = ? ORDER BY chunk_index`, entityType, entityID)
}

// AllChunks returns every stored chunk, used to load the vector index at
// startup.
func (db *DB) AllChunks() ([]EmbeddingChunk, error) {
	return db.queryChunks(`ORDER BY entity_type, entity_id, chunk_index`)
}

func (db *DB) queryChunks(where string, args ...any) ([]EmbeddingChunk, error) {
	rows, err := db.conn.Query(`
		SELECT entity_type, entity_id, chunk_index, repo_id, project_id, vector, model,
			dimension, content_hash, total_chunks, chunk_start, chunk_end, created_at
		FROM embeddings `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query chunks: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingChunk
	for rows.Next() {
		var c EmbeddingChunk
		var vec string
		if err := rows.Scan(&c.EntityType, &c.EntityID, &c.ChunkIndex, &c.RepoID, &c.ProjectID,
			&vec, &c.Model, &c.Dimension, &c.ContentHash, &c.TotalChunks,
			&c.ChunkStart, &c.ChunkEnd, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vec), &c.Vector); err != nil {
			return nil, fmt.Errorf("store: decode vector: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
