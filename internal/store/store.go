// Package store provides SQLite-backed persistence for context entities,
// embedding chunks, projects, and tickets.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id              TEXT PRIMARY KEY,
	repo_id         TEXT NOT NULL,
	name            TEXT NOT NULL,
	inherit_context INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS business_rules (
	id               TEXT PRIMARY KEY,
	repo_id          TEXT NOT NULL,
	project_id       TEXT NOT NULL DEFAULT '',
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	validation_logic TEXT NOT NULL DEFAULT '',
	examples         TEXT NOT NULL DEFAULT '[]',
	related_domains  TEXT NOT NULL DEFAULT '[]',
	category         TEXT NOT NULL DEFAULT '',
	priority         TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_business_rules_repo ON business_rules(repo_id);

CREATE TABLE IF NOT EXISTS glossary_entries (
	id         TEXT PRIMARY KEY,
	repo_id    TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	term       TEXT NOT NULL,
	definition TEXT NOT NULL DEFAULT '',
	aliases    TEXT NOT NULL DEFAULT '[]',
	examples   TEXT NOT NULL DEFAULT '[]',
	domain     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_glossary_entries_repo ON glossary_entries(repo_id);

CREATE TABLE IF NOT EXISTS patterns (
	id             TEXT PRIMARY KEY,
	repo_id        TEXT NOT NULL,
	project_id     TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	when_to_use    TEXT NOT NULL DEFAULT '',
	implementation TEXT NOT NULL DEFAULT '',
	examples       TEXT NOT NULL DEFAULT '[]',
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS conventions (
	id          TEXT PRIMARY KEY,
	repo_id     TEXT NOT NULL,
	project_id  TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	rationale   TEXT NOT NULL DEFAULT '',
	examples    TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	repo_id    TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	doc_type   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	source     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	entity_type  TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	chunk_index  INTEGER NOT NULL,
	repo_id      TEXT NOT NULL,
	project_id   TEXT NOT NULL DEFAULT '',
	vector       TEXT NOT NULL,
	model        TEXT NOT NULL,
	dimension    INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	total_chunks INTEGER NOT NULL,
	chunk_start  INTEGER NOT NULL,
	chunk_end    INTEGER NOT NULL,
	created_at   DATETIME NOT NULL,
	PRIMARY KEY (entity_type, entity_id, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_embeddings_repo ON embeddings(repo_id);

CREATE TABLE IF NOT EXISTS tickets (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	priority   TEXT NOT NULL DEFAULT 'medium',
	ord        INTEGER NOT NULL DEFAULT 0,
	depends_on TEXT NOT NULL DEFAULT '[]',
	type       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(project_id, title)
);
CREATE INDEX IF NOT EXISTS idx_tickets_project ON tickets(project_id);
`

// DB wraps a sql.DB with repository operations. Construct with Open and pass
// the handle explicitly; there is no package-level singleton.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
