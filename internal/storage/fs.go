package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/livetag/internal/checksum"
	"github.com/starford/livetag/internal/models"
	"github.com/starford/livetag/internal/samples"
)

// BackupSuffix is appended to a metadata document's name by Backup.
const BackupSuffix = ".bak"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the library root
	fsys fs.FS
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, fsys: os.DirFS(abs)}, nil
}

// Root returns the absolute library root.
func (f *FS) Root() string {
	return f.root
}

// FS returns the library as an fs.FS.
func (f *FS) FS() fs.FS {
	return f.fsys
}

// safePath resolves a relative path against the library root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes library root: %s", rel)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns metadata for every folder
// metadata document. Folder and Path are slash-separated.
func (f *FS) List(dir string) ([]models.FolderMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.FolderMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !samples.IsFolderDocument(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		sum, err := checksum.File(f.fsys, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		out = append(out, models.FolderMetadata{
			Folder:    filepath.ToSlash(samples.FolderOf(rel)),
			Path:      filepath.ToSlash(rel),
			Checksum:  sum,
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a library file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path names a regular file.
func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".livetag-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Backup copies path to path + BackupSuffix and returns the backup path.
// The original stays in place until the caller overwrites it.
func (f *FS) Backup(path string) (string, error) {
	data, err := f.Read(path)
	if err != nil {
		return "", err
	}
	dst := path + BackupSuffix
	if err := f.Write(dst, data); err != nil {
		return "", fmt.Errorf("storage: backup %s: %w", path, err)
	}
	return dst, nil
}
