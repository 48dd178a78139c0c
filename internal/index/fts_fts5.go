//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
			doc UNINDEXED,
			path UNINDEXED,
			folder,
			filename,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, doc, path, folder, filename string, tags []string) error {
	_, err := tx.Exec(`INSERT INTO files_fts (doc, path, folder, filename, tags) VALUES (?, ?, ?, ?, ?)`,
		doc, path, folder, filename, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, doc string) error {
	if _, err := tx.Exec(`DELETE FROM files_fts WHERE doc = ?`, doc); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching files with
// a highlighted snippet of their tags.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT files_fts.path,
		       files_fts.folder,
		       f.tags,
		       snippet(files_fts, 4, '<b>', '</b>', '...', 32)
		FROM files_fts
		JOIN files f ON f.path = files_fts.path
		WHERE files_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var tagsJSON string
		if err := rows.Scan(&r.Path, &r.Folder, &tagsJSON, &r.Snippet); err != nil {
			return nil, err
		}
		r.Tags = decodeTags(tagsJSON)
		out = append(out, r)
	}
	return out, rows.Err()
}
