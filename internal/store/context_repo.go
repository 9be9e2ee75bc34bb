package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// CreateContext inserts a context entity of any kind. Business-rule names and
// glossary terms must be unique within their repo; other kinds may duplicate.
func (db *DB) CreateContext(e models.ContextEntity) error {
	switch v := e.(type) {
	case *models.BusinessRule:
		if err := db.uniqueName("business_rules", "name", v.Scope.RepoID, v.Name); err != nil {
			return err
		}
		_, err := db.conn.Exec(`
			INSERT INTO business_rules (id, repo_id, project_id, name, description, validation_logic,
				examples, related_domains, category, priority, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Scope.RepoID, v.Scope.ProjectID, v.Name, v.Description, v.ValidationLogic,
			jsonList(v.Examples), jsonList(v.RelatedDomains), v.Category, v.Priority,
			v.CreatedAt, v.UpdatedAt)
		return wrapExec("create business rule", err)

	case *models.GlossaryEntry:
		if err := db.uniqueName("glossary_entries", "term", v.Scope.RepoID, v.Term); err != nil {
			return err
		}
		_, err := db.conn.Exec(`
			INSERT INTO glossary_entries (id, repo_id, project_id, term, definition, aliases,
				examples, domain, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Scope.RepoID, v.Scope.ProjectID, v.Term, v.Definition,
			jsonList(v.Aliases), jsonList(v.Examples), v.Domain, v.CreatedAt, v.UpdatedAt)
		return wrapExec("create glossary entry", err)

	case *models.Pattern:
		_, err := db.conn.Exec(`
			INSERT INTO patterns (id, repo_id, project_id, name, description, when_to_use,
				implementation, examples, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Scope.RepoID, v.Scope.ProjectID, v.Name, v.Description, v.WhenToUse,
			v.Implementation, jsonList(v.Examples), v.CreatedAt, v.UpdatedAt)
		return wrapExec("create pattern", err)

	case *models.Convention:
		_, err := db.conn.Exec(`
			INSERT INTO conventions (id, repo_id, project_id, name, description, rationale,
				examples, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Scope.RepoID, v.Scope.ProjectID, v.Name, v.Description, v.Rationale,
			jsonList(v.Examples), v.CreatedAt, v.UpdatedAt)
		return wrapExec("create convention", err)

	case *models.Document:
		_, err := db.conn.Exec(`
			INSERT INTO documents (id, repo_id, project_id, title, content, doc_type,
				tags, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Scope.RepoID, v.Scope.ProjectID, v.Title, v.Content, v.DocType,
			jsonList(v.Tags), v.Source, v.CreatedAt, v.UpdatedAt)
		return wrapExec("create document", err)
	}
	return apperr.Validation(fmt.Sprintf("unknown entity type %q", e.Type()))
}

// UpdateContext rewrites the full row for an entity. Callers apply the
// partial patch before calling; only stored rows are replaced here.
func (db *DB) UpdateContext(e models.ContextEntity) error {
	var (
		res sql.Result
		err error
	)
	switch v := e.(type) {
	case *models.BusinessRule:
		res, err = db.conn.Exec(`
			UPDATE business_rules SET name = ?, description = ?, validation_logic = ?,
				examples = ?, related_domains = ?, category = ?, priority = ?, updated_at = ?
			WHERE id = ?
		`, v.Name, v.Description, v.ValidationLogic, jsonList(v.Examples),
			jsonList(v.RelatedDomains), v.Category, v.Priority, v.UpdatedAt, v.ID)
	case *models.GlossaryEntry:
		res, err = db.conn.Exec(`
			UPDATE glossary_entries SET term = ?, definition = ?, aliases = ?,
				examples = ?, domain = ?, updated_at = ?
			WHERE id = ?
		`, v.Term, v.Definition, jsonList(v.Aliases), jsonList(v.Examples), v.Domain, v.UpdatedAt, v.ID)
	case *models.Pattern:
		res, err = db.conn.Exec(`
			UPDATE patterns SET name = ?, description = ?, when_to_use = ?,
				implementation = ?, examples = ?, updated_at = ?
			WHERE id = ?
		`, v.Name, v.Description, v.WhenToUse, v.Implementation, jsonList(v.Examples), v.UpdatedAt, v.ID)
	case *models.Convention:
		res, err = db.conn.Exec(`
			UPDATE conventions SET name = ?, description = ?, rationale = ?,
				examples = ?, updated_at = ?
			WHERE id = ?
		`, v.Name, v.Description, v.Rationale, jsonList(v.Examples), v.UpdatedAt, v.ID)
	case *models.Document:
		res, err = db.conn.Exec(`
			UPDATE documents SET title = ?, content = ?, doc_type = ?, tags = ?, source = ?, updated_at = ?
			WHERE id = ?
		`, v.Title, v.Content, v.DocType, jsonList(v.Tags), v.Source, v.UpdatedAt, v.ID)
	default:
		return apperr.Validation(fmt.Sprintf("unknown entity type %q", e.Type()))
	}
	if err != nil {
		return fmt.Errorf("store: update %s: %w", e.Type(), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound(string(e.Type()), e.EntityID())
	}
	return nil
}

// GetContext loads one entity by type and id.
func (db *DB) GetContext(t models.EntityType, id string) (models.ContextEntity, error) {
	entities, err := db.queryContext(t, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, apperr.NotFound(string(t), id)
	}
	return entities[0], nil
}

// DeleteContext removes the entity row. Embedding chunk cleanup is owned by
// the embedding lifecycle, which callers invoke alongside this. Returns
// false when no row existed.
func (db *DB) DeleteContext(t models.EntityType, id string) (bool, error) {
	table, ok := tableFor(t)
	if !ok {
		return false, apperr.Validation(fmt.Sprintf("unknown entity type %q", t))
	}
	res, err := db.conn.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete %s: %w", t, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListContext returns entities of one kind visible in the given scope:
// repo-level rows always, plus the project's rows when projectID is set.
func (db *DB) ListContext(t models.EntityType, repoID, projectID string) ([]models.ContextEntity, error) {
	if projectID == "" {
		return db.queryContext(t, "WHERE repo_id = ? AND project_id = '' ORDER BY created_at", repoID)
	}
	return db.queryContext(t, "WHERE repo_id = ? AND (project_id = '' OR project_id = ?) ORDER BY created_at", repoID, projectID)
}

// queryContext runs a per-kind SELECT with the given WHERE clause and scans
// rows into the right variant.
func (db *DB) queryContext(t models.EntityType, where string, args ...any) ([]models.ContextEntity, error) {
	var q string
	switch t {
	case models.TypeBusinessRule:
		q = `SELECT id, repo_id, project_id, name, description, validation_logic,
			examples, related_domains, category, priority, created_at, updated_at
			FROM business_rules `
	case models.TypeGlossaryEntry:
		q = `SELECT id, repo_id, project_id, term, definition, aliases, examples, domain,
			created_at, updated_at
			FROM glossary_entries `
	case models.TypePattern:
		q = `SELECT id, repo_id, project_id, name, description, when_to_use, implementation,
			examples, created_at, updated_at
			FROM patterns `
	case models.TypeConvention:
		q = `SELECT id, repo_id, project_id, name, description, rationale, examples,
			created_at, updated_at
			FROM conventions `
	case models.TypeDocument:
		q = `SELECT id, repo_id, project_id, title, content, doc_type, tags, source,
			created_at, updated_at
			FROM documents `
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown entity type %q", t))
	}

	rows, err := db.conn.Query(q+where, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", t, err)
	}
	defer rows.Close()

	var out []models.ContextEntity
	for rows.Next() {
		e, err := scanContext(t, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanContext(t models.EntityType, rows *sql.Rows) (models.ContextEntity, error) {
	switch t {
	case models.TypeBusinessRule:
		var v models.BusinessRule
		var examples, domains string
		if err := rows.Scan(&v.ID, &v.Scope.RepoID, &v.Scope.ProjectID, &v.Name, &v.Description,
			&v.ValidationLogic, &examples, &domains, &v.Category, &v.Priority,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Examples = fromJSONList(examples)
		v.RelatedDomains = fromJSONList(domains)
		return &v, nil
	case models.TypeGlossaryEntry:
		var v models.GlossaryEntry
		var aliases, examples string
		if err := rows.Scan(&v.ID, &v.Scope.RepoID, &v.Scope.ProjectID, &v.Term, &v.Definition,
			&aliases, &examples, &v.Domain, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Aliases = fromJSONList(aliases)
		v.Examples = fromJSONList(examples)
		return &v, nil
	case models.TypePattern:
		var v models.Pattern
		var examples string
		if err := rows.Scan(&v.ID, &v.Scope.RepoID, &v.Scope.ProjectID, &v.Name, &v.Description,
			&v.WhenToUse, &v.Implementation, &examples, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Examples = fromJSONList(examples)
		return &v, nil
	case models.TypeConvention:
		var v models.Convention
		var examples string
		if err := rows.Scan(&v.ID, &v.Scope.RepoID, &v.Scope.ProjectID, &v.Name, &v.Description,
			&v.Rationale, &examples, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Examples = fromJSONList(examples)
		return &v, nil
	case models.TypeDocument:
		var v models.Document
		var tags string
		if err := rows.Scan(&v.ID, &v.Scope.RepoID, &v.Scope.ProjectID, &v.Title, &v.Content,
			&v.DocType, &tags, &v.Source, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Tags = fromJSONList(tags)
		return &v, nil
	}
	return nil, fmt.Errorf("store: scan: unknown entity type %q", t)
}

// FindDocumentBySource returns the document imported from the given docs
// path, used by the importer to map files back to entities.
func (db *DB) FindDocumentBySource(repoID, source string) (*models.Document, error) {
	entities, err := db.queryContext(models.TypeDocument, "WHERE repo_id = ? AND source = ?", repoID, source)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, apperr.NotFound("document", source)
	}
	return entities[0].(*models.Document), nil
}

// ImportedDocuments returns every document in a repo that originated from
// the docs directory, keyed by source path.
func (db *DB) ImportedDocuments(repoID string) (map[string]*models.Document, error) {
	entities, err := db.queryContext(models.TypeDocument, "WHERE repo_id = ? AND source != ''", repoID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Document, len(entities))
	for _, e := range entities {
		d := e.(*models.Document)
		out[d.Source] = d
	}
	return out, nil
}

func (db *DB) uniqueName(table, col, repoID, name string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT count(*) FROM `+table+` WHERE repo_id = ? AND `+col+` = ?`,
		repoID, name,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("store: check %s: %w", col, err)
	}
	if count > 0 {
		return apperr.Conflict(fmt.Sprintf("%s %q already exists in repo %q", col, name, repoID))
	}
	return nil
}

func tableFor(t models.EntityType) (string, bool) {
	switch t {
	case models.TypeBusinessRule:
		return "business_rules", true
	case models.TypeGlossaryEntry:
		return "glossary_entries", true
	case models.TypePattern:
		return "patterns", true
	case models.TypeConvention:
		return "conventions", true
	case models.TypeDocument:
		return "documents", true
	}
	return "", false
}

func wrapExec(action string, err error) error {
	if err != nil {
		return fmt.Errorf("store: %s: %w", action, err)
	}
	return nil
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func fromJSONList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
