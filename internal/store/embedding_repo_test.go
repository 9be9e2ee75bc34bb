package store

import (
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
)

func testChunk(entityID string, idx, total int, hash string) EmbeddingChunk {
	return EmbeddingChunk{
		EntityType:  models.TypeDocument,
		EntityID:    entityID,
		ChunkIndex:  idx,
		RepoID:      "repo-a",
		Vector:      []float32{0.1, 0.2, float32(idx)},
		Model:       "fake-embedder",
		Dimension:   3,
		ContentHash: hash,
		TotalChunks: total,
		ChunkStart:  idx * 100,
		ChunkEnd:    idx*100 + 100,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestReplaceAndReadChunks(t *testing.T) {
	db := testDB(t)
	chunks := []EmbeddingChunk{
		testChunk("doc-1", 0, 2, "hash-1"),
		testChunk("doc-1", 1, 2, "hash-1"),
	}
	if err := db.ReplaceChunks(models.TypeDocument, "doc-1", chunks); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	got, err := db.ChunksFor(models.TypeDocument, "doc-1")
	if err != nil {
		t.Fatalf("ChunksFor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	if got[0].ChunkIndex != 0 || got[1].ChunkIndex != 1 {
		t.Errorf("chunk order = [%d %d], want [0 1]", got[0].ChunkIndex, got[1].ChunkIndex)
	}
	if len(got[1].Vector) != 3 || got[1].Vector[2] != 1 {
		t.Errorf("vector round trip broke: %v", got[1].Vector)
	}
}

func TestReplaceChunksShrinksSet(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceChunks(models.TypeDocument, "doc-1", []EmbeddingChunk{
		testChunk("doc-1", 0, 3, "hash-1"),
		testChunk("doc-1", 1, 3, "hash-1"),
		testChunk("doc-1", 2, 3, "hash-1"),
	}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := db.ReplaceChunks(models.TypeDocument, "doc-1", []EmbeddingChunk{
		testChunk("doc-1", 0, 1, "hash-2"),
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	got, err := db.ChunksFor(models.TypeDocument, "doc-1")
	if err != nil {
		t.Fatalf("ChunksFor: %v", err)
	}
	if len(got) != 1 || got[0].ContentHash != "hash-2" {
		t.Errorf("stale chunks survived the rewrite: %+v", got)
	}
}

func TestChunkHash(t *testing.T) {
	db := testDB(t)
	hash, err := db.ChunkHash(models.TypeDocument, "doc-1")
	if err != nil || hash != "" {
		t.Fatalf("empty hash = %q, %v; want \"\", nil", hash, err)
	}

	if err := db.ReplaceChunks(models.TypeDocument, "doc-1", []EmbeddingChunk{
		testChunk("doc-1", 0, 1, "hash-1"),
	}); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	hash, err = db.ChunkHash(models.TypeDocument, "doc-1")
	if err != nil || hash != "hash-1" {
		t.Errorf("hash = %q, %v; want hash-1, nil", hash, err)
	}
}

func TestDeleteChunks(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceChunks(models.TypeDocument, "doc-1", []EmbeddingChunk{
		testChunk("doc-1", 0, 1, "hash-1"),
	}); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	if err := db.DeleteChunks(models.TypeDocument, "doc-1"); err != nil {
		t.Fatalf("DeleteChunks: %v", err)
	}
	got, err := db.ChunksFor(models.TypeDocument, "doc-1")
	if err != nil || len(got) != 0 {
		t.Errorf("chunks after delete = %v, %v; want none", got, err)
	}
	// Deleting an entity without chunks is a no-op.
	if err := db.DeleteChunks(models.TypeDocument, "doc-1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestAllChunksSpansEntities(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceChunks(models.TypeDocument, "doc-1", []EmbeddingChunk{
		testChunk("doc-1", 0, 1, "hash-1"),
	}); err != nil {
		t.Fatalf("ReplaceChunks doc-1: %v", err)
	}
	other := testChunk("br-1", 0, 1, "hash-2")
	other.EntityType = models.TypeBusinessRule
	if err := db.ReplaceChunks(models.TypeBusinessRule, "br-1", []EmbeddingChunk{other}); err != nil {
		t.Fatalf("ReplaceChunks br-1: %v", err)
	}

	all, err := db.AllChunks()
	if err != nil {
		t.Fatalf("AllChunks: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d chunks, want 2", len(all))
	}
}
