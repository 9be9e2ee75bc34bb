package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// CreateTickets inserts a batch of tickets in one transaction. Dependency
// validation (self-reference, cycles, title resolution) happens before this
// is called; a failed insert rolls back the whole batch.
func (db *DB) CreateTickets(tickets []models.Ticket) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO tickets (id, project_id, title, status, priority, ord, depends_on, type,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare ticket insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tickets {
		if _, err := stmt.Exec(t.ID, t.ProjectID, t.Title, t.Status, t.Priority, t.Order,
			jsonList(t.DependsOn), t.Type, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("store: insert ticket %q: %w", t.Title, err)
		}
	}
	return tx.Commit()
}

// GetTicket resolves ref as a ticket id first, then as a title within the
// project.
func (db *DB) GetTicket(projectID, ref string) (*models.Ticket, error) {
	t, err := db.scanTicket(`SELECT id, project_id, title, status, priority, ord, depends_on, type,
		created_at, updated_at FROM tickets WHERE project_id = ? AND id = ?`, projectID, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get ticket: %w", err)
	}
	t, err = db.scanTicket(`SELECT id, project_id, title, status, priority, ord, depends_on, type,
		created_at, updated_at FROM tickets WHERE project_id = ? AND title = ?`, projectID, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("ticket", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get ticket: %w", err)
	}
	return t, nil
}

// ListTickets returns every ticket of a project in creation order.
func (db *DB) ListTickets(projectID string) ([]models.Ticket, error) {
	rows, err := db.conn.Query(`
		SELECT id, project_id, title, status, priority, ord, depends_on, type, created_at, updated_at
		FROM tickets WHERE project_id = ? ORDER BY ord
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		var deps string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &t.Order,
			&deps, &t.Type, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.DependsOn = fromJSONList(deps)
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTicket rewrites the full ticket row.
func (db *DB) UpdateTicket(t models.Ticket) error {
	res, err := db.conn.Exec(`
		UPDATE tickets SET title = ?, status = ?, priority = ?, ord = ?, depends_on = ?,
			type = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Status, t.Priority, t.Order, jsonList(t.DependsOn), t.Type, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("store: update ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("ticket", t.ID)
	}
	return nil
}

// DeleteTicket removes a ticket and rewrites every other ticket in the
// project whose depends_on references it, so dependents are never silently
// orphaned. Returns the ids of the rewritten dependents.
func (db *DB) DeleteTicket(projectID, id string) ([]string, error) {
	tickets, err := db.ListTickets(projectID)
	if err != nil {
		return nil, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM tickets WHERE project_id = ? AND id = ?`, projectID, id)
	if err != nil {
		return nil, fmt.Errorf("store: delete ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("ticket", id)
	}

	var rewritten []string
	for _, t := range tickets {
		kept := t.DependsOn[:0:0]
		removed := false
		for _, dep := range t.DependsOn {
			if dep == id {
				removed = true
				continue
			}
			kept = append(kept, dep)
		}
		if !removed {
			continue
		}
		if _, err := tx.Exec(`UPDATE tickets SET depends_on = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			jsonList(kept), t.ID); err != nil {
			return nil, fmt.Errorf("store: rewrite dependents: %w", err)
		}
		rewritten = append(rewritten, t.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit delete: %w", err)
	}
	return rewritten, nil
}

// NextTicketOrder returns one past the highest order value in the project.
func (db *DB) NextTicketOrder(projectID string) (int, error) {
	var max sql.NullInt64
	err := db.conn.QueryRow(`SELECT MAX(ord) FROM tickets WHERE project_id = ?`, projectID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("store: next order: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

func (db *DB) scanTicket(q string, args ...any) (*models.Ticket, error) {
	var t models.Ticket
	var deps string
	err := db.conn.QueryRow(q, args...).Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status,
		&t.Priority, &t.Order, &deps, &t.Type, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.DependsOn = fromJSONList(deps)
	return &t, nil
}
