// Package testutil provides shared test helpers for setting up databases,
// docs directories, and a deterministic embedder.
package testutil

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"testing"

	"github.com/starford/ansuz/internal/chunker"
	"github.com/starford/ansuz/internal/contextservice"
	"github.com/starford/ansuz/internal/embedding"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/ticketservice"
	"github.com/starford/ansuz/internal/vecindex"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDocsDir creates a temporary docs directory with a storage.Provider.
func TestDocsDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	docsDir := t.TempDir()
	files, err := storage.NewFS(docsDir)
	if err != nil {
		t.Fatal(err)
	}
	return docsDir, files
}

// FakeEmbedder is a deterministic in-process embedder. Identical text always
// embeds to the identical vector, so similarity assertions are stable. Calls
// counts Embed invocations; set Fail to make every call error.
type FakeEmbedder struct {
	Calls atomic.Int64
	Fail  atomic.Bool
	dim   int
}

// NewFakeEmbedder returns a FakeEmbedder with a small fixed dimension.
func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{dim: 16}
}

func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.Calls.Add(1)
	if f.Fail.Load() {
		return nil, errors.New("embedder unavailable")
	}

	// Bucket byte trigrams so overlapping vocabulary yields nearby vectors.
	vec := make([]float32, f.dim)
	b := []byte(text)
	for i := 0; i+2 < len(b); i++ {
		h := uint32(b[i])*31*31 + uint32(b[i+1])*31 + uint32(b[i+2])
		vec[h%uint32(f.dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (f *FakeEmbedder) Dimension() int    { return f.dim }
func (f *FakeEmbedder) ModelName() string { return "fake-embedder" }

// Env bundles everything a service-level test needs.
type Env struct {
	DB       *store.DB
	Embedder *FakeEmbedder
	Index    *vecindex.Index
	Contexts *contextservice.Service
	Tickets  *ticketservice.Service
}

// NewEnv wires a full service stack on a temporary database with the fake
// embedder and a quiet logger.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	db := TestDB(t)
	emb := NewFakeEmbedder()
	idx := vecindex.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	lc := embedding.NewLifecycle(db, emb, idx, chunker.DefaultConfig, logger)
	searcher := search.New(db, emb, idx, logger)

	return &Env{
		DB:       db,
		Embedder: emb,
		Index:    idx,
		Contexts: contextservice.New(db, lc, searcher, logger),
		Tickets:  ticketservice.New(db, logger),
	}
}
