package docsync_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileImported(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go fx.importer.Watch(ctx, fx.docsDir, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(fx.docsDir, "new.md"), []byte("# New\n\nFresh file."), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := fx.env.DB.FindDocumentBySource("repo-a", "new.md")
		return err == nil
	}, "new file not imported by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "created event not delivered")
}

func TestWatcher_RemovedFileDeleted(t *testing.T) {
	fx := newFixture(t)
	fx.writeFile(t, "doomed.md", "# Doomed\n\nWill be removed.")
	if err := fx.importer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	doc, err := fx.env.DB.FindDocumentBySource("repo-a", "doomed.md")
	if err != nil {
		t.Fatalf("imported document missing: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fx.importer.Watch(ctx, fx.docsDir, nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(fx.docsDir, "doomed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := fx.env.Contexts.GetContext(context.Background(), models.TypeDocument, doc.ID)
		return errors.Is(err, apperr.ErrNotFound)
	}, "removed file's document not deleted")
}
