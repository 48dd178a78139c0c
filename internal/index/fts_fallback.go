//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the files table.
	return nil
}

func ftsInsert(_ *sql.Tx, _, _, _, _ string, _ []string) error {
	// Files and tags are already stored in the files table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search over paths and tags (fallback when
// FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT path, folder, tags
		FROM files
		WHERE path LIKE ? OR tags LIKE ?
		ORDER BY path
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var tagsJSON string
		if err := rows.Scan(&r.Path, &r.Folder, &tagsJSON); err != nil {
			return nil, err
		}
		r.Tags = decodeTags(tagsJSON)
		r.Snippet = r.Path
		out = append(out, r)
	}
	return out, rows.Err()
}
