// Package storage defines the sample library file-system abstraction.
package storage

import (
	"io/fs"

	"github.com/starford/livetag/internal/models"
)

// Provider is the interface for library file operations. Every path is
// relative to the library root.
type Provider interface {
	// List returns every folder metadata document under dir.
	List(dir string) ([]models.FolderMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Backup copies the file at path to path + ".bak", replacing any older backup.
	Backup(path string) (string, error)
	// FS exposes the library as a read-only file system for globbing.
	FS() fs.FS
	// Root returns the absolute library root.
	Root() string
}
