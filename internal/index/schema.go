// Package index provides a SQLite-backed catalog of folder metadata documents,
// with optional FTS5 full-text search over file names and tags.
package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS folders (
	path       TEXT PRIMARY KEY,
	folder     TEXT NOT NULL,
	checksum   TEXT NOT NULL DEFAULT '',
	files      INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS files (
	path     TEXT PRIMARY KEY,
	doc      TEXT NOT NULL REFERENCES folders(path) ON DELETE CASCADE,
	folder   TEXT NOT NULL,
	filename TEXT NOT NULL,
	position INTEGER NOT NULL,
	tags     TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS file_tags (
	path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	tag  TEXT NOT NULL,
	UNIQUE(path, tag)
);

CREATE INDEX IF NOT EXISTS idx_files_doc ON files(doc);
CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
