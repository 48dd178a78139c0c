package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/starford/livetag/internal/models"
)

// FolderRow represents a row in the folders table. Path is the metadata
// document, Folder the sample folder it describes.
type FolderRow struct {
	Path      string
	Folder    string
	Checksum  string
	Files     int
	UpdatedAt time.Time
}

// FileRow represents one tagged file. Path is the file's location
// relative to the library root.
type FileRow struct {
	Path     string
	Folder   string
	Filename string
	Tags     []string
}

// TagCount is a tag and the number of files carrying it.
type TagCount struct {
	Tag   string
	Count int
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Folder  string
	Tags    []string
	Snippet string
}

// FilePath joins a folder and a filename the way the catalog keys files.
func FilePath(folder, filename string) string {
	return path.Join(folder, filename)
}

// UpsertFolder replaces a folder document and all of its files within a
// transaction. Items without a filename are skipped; for repeated filenames
// the first item wins.
func (db *DB) UpsertFolder(f FolderRow, items []models.Item) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	files := dedupe(items)

	_, err = tx.Exec(`
		INSERT INTO folders (path, folder, checksum, files, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			folder     = excluded.folder,
			checksum   = excluded.checksum,
			files      = excluded.files,
			updated_at = excluded.updated_at
	`, f.Path, f.Folder, f.Checksum, len(files), f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert folder: %w", err)
	}

	// Replace files: FTS rows first, then cascade file_tags via files.
	if err := ftsDelete(tx, f.Path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE doc = ?`, f.Path); err != nil {
		return fmt.Errorf("index: clear files: %w", err)
	}
	if len(files) == 0 {
		return tx.Commit()
	}

	fileStmt, err := tx.Prepare(`INSERT INTO files (path, doc, folder, filename, position, tags) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare file insert: %w", err)
	}
	defer fileStmt.Close()
	tagStmt, err := tx.Prepare(`INSERT OR IGNORE INTO file_tags (path, tag) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer tagStmt.Close()

	for i, it := range files {
		p := FilePath(f.Folder, it.Filename)
		tagsJSON, _ := json.Marshal(nonNil(it.Keywords))
		if _, err := fileStmt.Exec(p, f.Path, f.Folder, it.Filename, i+1, string(tagsJSON)); err != nil {
			return fmt.Errorf("index: insert file: %w", err)
		}
		for _, tag := range it.Keywords {
			if _, err := tagStmt.Exec(p, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
		if err := ftsInsert(tx, f.Path, p, f.Folder, it.Filename, it.Keywords); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteFolder removes a folder document and its files.
func (db *DB) DeleteFolder(doc string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, doc); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM folders WHERE path = ?`, doc); err != nil {
		return fmt.Errorf("index: delete folder: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a folder document, or empty
// string if not found.
func (db *DB) GetChecksum(doc string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM folders WHERE path = ?`, doc).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed folder document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM folders`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListFolders returns every indexed folder ordered by folder path.
func (db *DB) ListFolders() ([]FolderRow, error) {
	rows, err := db.conn.Query(`SELECT path, folder, checksum, files, updated_at FROM folders ORDER BY folder`)
	if err != nil {
		return nil, fmt.Errorf("index: list folders: %w", err)
	}
	defer rows.Close()

	var out []FolderRow
	for rows.Next() {
		var f FolderRow
		if err := rows.Scan(&f.Path, &f.Folder, &f.Checksum, &f.Files, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListFiles returns files ordered by path, optionally restricted to those
// carrying tag, along with the total number of matches.
func (db *DB) ListFiles(tag string, limit, offset int) ([]FileRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where, args := "", []any{}
	if tag != "" {
		where = `WHERE f.path IN (SELECT path FROM file_tags WHERE tag = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files f `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count files: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT f.path, f.folder, f.filename, f.tags
		FROM files f `+where+`
		ORDER BY f.path
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var r FileRow
		var tagsJSON string
		if err := rows.Scan(&r.Path, &r.Folder, &r.Filename, &tagsJSON); err != nil {
			return nil, 0, err
		}
		r.Tags = decodeTags(tagsJSON)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Tags returns every tag with the number of files carrying it, most used
// first.
func (db *DB) Tags() ([]TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag, count(*) AS n FROM file_tags GROUP BY tag ORDER BY n DESC, tag`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func dedupe(items []models.Item) []models.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if it.Filename == "" {
			continue
		}
		if _, ok := seen[it.Filename]; ok {
			continue
		}
		seen[it.Filename] = struct{}{}
		out = append(out, it)
	}
	return out
}

func decodeTags(s string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
