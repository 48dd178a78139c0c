package index

import "github.com/starford/livetag/internal/models"

// Catalog defines the interface for catalog operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Catalog interface {
	UpsertFolder(f FolderRow, items []models.Item) error
	DeleteFolder(path string) error
	GetChecksum(path string) (string, error)
	ListFolders() ([]FolderRow, error)
	ListFiles(tag string, limit, offset int) ([]FileRow, int, error)
	Tags() ([]TagCount, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
