package docsync_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/docsync"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/testutil"
)

type fixture struct {
	env      *testutil.Env
	importer *docsync.Importer
	docsDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	docsDir, files := testutil.TestDocsDir(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		env:      env,
		importer: docsync.New(env.Contexts, env.DB, files, "repo-a", logger),
		docsDir:  docsDir,
	}
}

func (fx *fixture) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(fx.docsDir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (fx *fixture) documents(t *testing.T) []models.ContextEntity {
	t.Helper()
	docs, err := fx.env.Contexts.ListContext(context.Background(), models.TypeDocument,
		models.Scope{RepoID: "repo-a"})
	if err != nil {
		t.Fatalf("ListContext: %v", err)
	}
	return docs
}

func TestSyncImportsMarkdownFiles(t *testing.T) {
	fx := newFixture(t)
	fx.writeFile(t, "adr/001-sqlite.md", `---
title: Use SQLite
type: adr
tags: [storage]
---
We store everything in a single file database.`)
	fx.writeFile(t, "notes.txt", "not markdown, ignored")

	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	docs := fx.documents(t)
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	doc := docs[0].(*models.Document)
	if doc.Title != "Use SQLite" || doc.DocType != "adr" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Source != filepath.Join("adr", "001-sqlite.md") {
		t.Errorf("source = %q", doc.Source)
	}
	if len(doc.Tags) != 1 || doc.Tags[0] != "storage" {
		t.Errorf("tags = %v", doc.Tags)
	}
}

func TestSyncUnchangedFileIsNoOp(t *testing.T) {
	fx := newFixture(t)
	fx.writeFile(t, "guide.md", "# Guide\n\nHow things work.")
	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	first := fx.documents(t)[0].(*models.Document)
	calls := fx.env.Embedder.Calls.Load()

	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	second := fx.documents(t)[0].(*models.Document)
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("unchanged file rewrote the document row")
	}
	if got := fx.env.Embedder.Calls.Load(); got != calls {
		t.Errorf("unchanged file triggered %d embed calls", got-calls)
	}
}

func TestSyncPicksUpEdits(t *testing.T) {
	fx := newFixture(t)
	fx.writeFile(t, "guide.md", "# Guide\n\nFirst draft.")
	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}

	fx.writeFile(t, "guide.md", "# Guide\n\nSecond draft with more detail.")
	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	docs := fx.documents(t)
	if len(docs) != 1 {
		t.Fatalf("edit created a duplicate: %d documents", len(docs))
	}
	doc := docs[0].(*models.Document)
	if doc.Content != "Second draft with more detail." {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestSyncRemovesDeletedFiles(t *testing.T) {
	fx := newFixture(t)
	fx.writeFile(t, "stale.md", "# Stale\n\nGoing away.")
	fx.writeFile(t, "kept.md", "# Kept\n\nStaying.")
	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if got := len(fx.documents(t)); got != 2 {
		t.Fatalf("imported %d documents, want 2", got)
	}

	if err := os.Remove(filepath.Join(fx.docsDir, "stale.md")); err != nil {
		t.Fatal(err)
	}
	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	docs := fx.documents(t)
	if len(docs) != 1 {
		t.Fatalf("got %d documents after removal, want 1", len(docs))
	}
	if docs[0].(*models.Document).Title != "Kept" {
		t.Errorf("wrong document survived: %q", docs[0].DisplayTitle())
	}
}

func TestSyncLeavesManualDocumentsAlone(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.env.Contexts.StoreContext(context.Background(), &models.Document{
		Title:   "Hand-written",
		Content: "created through the API, no source file",
	}, models.Scope{RepoID: "repo-a"}); err != nil {
		t.Fatalf("StoreContext: %v", err)
	}

	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	docs := fx.documents(t)
	if len(docs) != 1 || docs[0].DisplayTitle() != "Hand-written" {
		t.Errorf("manual document affected by sync: %v", docs)
	}
}
