package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// CreateProject inserts a new project row.
func (db *DB) CreateProject(p models.Project) error {
	_, err := db.conn.Exec(`
		INSERT INTO projects (id, repo_id, name, inherit_context, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.RepoID, p.Name, p.InheritContext, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create project: %w", err)
	}
	return nil
}

// GetProject returns the project with the given id.
func (db *DB) GetProject(id string) (*models.Project, error) {
	var p models.Project
	err := db.conn.QueryRow(`
		SELECT id, repo_id, name, inherit_context, created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.RepoID, &p.Name, &p.InheritContext, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns every project under a repo.
func (db *DB) ListProjects(repoID string) ([]models.Project, error) {
	rows, err := db.conn.Query(`
		SELECT id, repo_id, name, inherit_context, created_at, updated_at
		FROM projects WHERE repo_id = ? ORDER BY created_at
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.RepoID, &p.Name, &p.InheritContext, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetProjectInheritance flips the inherit_context flag.
func (db *DB) SetProjectInheritance(id string, inherit bool) error {
	res, err := db.conn.Exec(`UPDATE projects SET inherit_context = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, inherit, id)
	if err != nil {
		return fmt.Errorf("store: set inheritance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("project", id)
	}
	return nil
}
