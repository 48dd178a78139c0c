//go:build sqlite_fts5

package index

import (
	"testing"
	"time"

	"github.com/starford/livetag/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files_fts`).Scan(&count); err != nil {
		t.Fatalf("files_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := FolderRow{Path: "Loops/meta.xmp", Folder: "Loops", Checksum: "f1", UpdatedAt: time.Now()}
	items := []models.Item{{Filename: "amen.wav", Keywords: []string{"Loop|Breakbeat"}}}
	if err := db.UpsertFolder(row, items); err != nil {
		t.Fatalf("UpsertFolder: %v", err)
	}

	results, err := db.Search("breakbeat", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "Loops/amen.wav" {
		t.Errorf("path = %q", results[0].Path)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFolder(FolderRow{Path: "gone.xmp", Folder: ".", Checksum: "g", UpdatedAt: time.Now()},
		[]models.Item{{Filename: "vanishing.wav", Keywords: []string{"Vanishing"}}})
	_ = db.DeleteFolder("gone.xmp")

	results, _ := db.Search("vanishing", 10)
	if len(results) != 0 {
		t.Errorf("deleted folder still in FTS index: %+v", results)
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	row := FolderRow{Path: "evo.xmp", Folder: ".", Checksum: "1", UpdatedAt: time.Now()}
	_ = db.UpsertFolder(row, []models.Item{{Filename: "a.wav", Keywords: []string{"Original"}}})
	row.Checksum = "2"
	_ = db.UpsertFolder(row, []models.Item{{Filename: "a.wav", Keywords: []string{"Replacement"}}})

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Path != "a.wav" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
