// Package docsync mirrors a directory of Markdown files into document
// entities. Each imported file becomes one document whose Source field holds
// the file's path relative to the docs root; edits on disk flow back into
// the store and removed files delete their entity.
package docsync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/contextservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// Importer brings document entities in line with the docs directory.
type Importer struct {
	svc    *contextservice.Service
	db     *store.DB
	files  storage.Provider
	repoID string
	logger *slog.Logger
}

// New builds an Importer. Imported documents land repo-scoped under repoID.
func New(svc *contextservice.Service, db *store.DB, files storage.Provider, repoID string, logger *slog.Logger) *Importer {
	return &Importer{svc: svc, db: db, files: files, repoID: repoID, logger: logger}
}

// Sync walks the docs root and brings the store up to date:
//   - new/changed files are parsed and upserted as documents
//   - documents whose source file is gone are deleted
func (im *Importer) Sync(ctx context.Context) error {
	metas, err := im.files.List("")
	if err != nil {
		return err
	}

	imported, err := im.db.ImportedDocuments(im.repoID)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if err := im.importFile(ctx, m.Path); err != nil {
			im.logger.Warn("docsync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
	}

	// Remove documents whose file no longer exists.
	for src, doc := range imported {
		if _, ok := disk[src]; !ok {
			if _, err := im.svc.DeleteContext(ctx, models.TypeDocument, doc.ID); err != nil {
				im.logger.Warn("docsync: delete failed", slog.String("path", src), slog.String("error", err.Error()))
			} else {
				im.logger.Debug("docsync: removed stale", slog.String("path", src))
			}
		}
	}

	return nil
}

// importFile parses one file and creates or updates its document. Unchanged
// files are a no-op so repeated syncs do not rewrite rows or touch
// embeddings.
func (im *Importer) importFile(ctx context.Context, path string) error {
	data, err := im.files.Read(path)
	if err != nil {
		return err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}

	existing, err := im.db.FindDocumentBySource(im.repoID, path)
	switch {
	case err == nil:
		if unchanged(existing, res) {
			return nil
		}
		patch := contextservice.DocumentPatch{
			Title:   &res.Title,
			Content: &res.Body,
			DocType: &res.DocType,
			Tags:    &res.Tags,
		}
		if _, err := im.svc.UpdateContext(ctx, models.TypeDocument, existing.ID, patch); err != nil {
			return err
		}
		im.logger.Debug("docsync: updated", slog.String("path", path))
		return nil

	case errors.Is(err, apperr.ErrNotFound):
		doc := &models.Document{
			Title:   res.Title,
			Content: res.Body,
			DocType: res.DocType,
			Tags:    res.Tags,
			Source:  path,
		}
		if _, err := im.svc.StoreContext(ctx, doc, models.Scope{RepoID: im.repoID}); err != nil {
			return err
		}
		im.logger.Debug("docsync: imported", slog.String("path", path))
		return nil

	default:
		return err
	}
}

// remove deletes the document imported from path, if any.
func (im *Importer) remove(ctx context.Context, path string) error {
	doc, err := im.db.FindDocumentBySource(im.repoID, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = im.svc.DeleteContext(ctx, models.TypeDocument, doc.ID)
	return err
}

func unchanged(d *models.Document, res *parser.Result) bool {
	if d.Title != res.Title || d.Content != res.Body || d.DocType != res.DocType {
		return false
	}
	if len(d.Tags) != len(res.Tags) {
		return false
	}
	for i := range d.Tags {
		if d.Tags[i] != res.Tags[i] {
			return false
		}
	}
	return true
}
