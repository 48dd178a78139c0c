// Package testutil provides shared test helpers for setting up sample
// libraries and catalogs.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/livetag/internal/index"
	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "livetag-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory holding an empty file
// for each of the given slash-separated sample paths.
func TestLibrary(t *testing.T, files ...string) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteMetadata stores content as the metadata document of folder.
func WriteMetadata(t *testing.T, store storage.Provider, folder, content string) string {
	t.Helper()
	p := samples.MetadataPath(folder)
	if err := store.Write(p, []byte(content)); err != nil {
		t.Fatal(err)
	}
	return p
}

// ReadMetadata returns the metadata document of folder.
func ReadMetadata(t *testing.T, store storage.Provider, folder string) string {
	t.Helper()
	data, err := store.Read(samples.MetadataPath(folder))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
