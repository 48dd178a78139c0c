package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/livetag/internal/checksum"
	"github.com/starford/livetag/internal/models"
	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/xmp"
)

// SyncStats summarises one Sync pass.
type SyncStats struct {
	Indexed int
	Removed int
	Failed  int
}

type parsed struct {
	meta  models.FolderMetadata
	items []models.Item
	err   error
}

// Sync walks the library and brings the catalog up to date:
//   - new/changed folder documents are parsed and upserted
//   - documents removed from disk are deleted from the catalog
//
// Documents are parsed concurrently; writes to the catalog stay sequential.
// A document that fails to read or parse is logged and skipped.
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	metas, err := store.List("")
	if err != nil {
		return stats, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	var changed []models.FolderMetadata
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] != m.Checksum {
			changed = append(changed, m)
		}
	}

	results := make([]parsed, len(changed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, m := range changed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := store.Read(m.Path)
			if err != nil {
				results[i] = parsed{meta: m, err: err}
				return nil
			}
			items, err := parseItems(data)
			results[i] = parsed{meta: m, items: items, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, r := range results {
		if r.err != nil {
			stats.Failed++
			logger.Warn("sync: parse failed", slog.String("path", r.meta.Path), slog.String("error", r.err.Error()))
			continue
		}
		row := FolderRow{
			Path:      r.meta.Path,
			Folder:    r.meta.Folder,
			Checksum:  r.meta.Checksum,
			UpdatedAt: r.meta.UpdatedAt,
		}
		if err := db.UpsertFolder(row, r.items); err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("path", r.meta.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", r.meta.Path))
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteFolder(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return stats, nil
}

// IndexDocument parses the folder document at rel (slash-separated,
// relative to the library root) and upserts it.
func IndexDocument(db *DB, rel string, data []byte) error {
	items, err := parseItems(data)
	if err != nil {
		return err
	}
	return db.UpsertFolder(FolderRow{
		Path:      rel,
		Folder:    filepath.ToSlash(samples.FolderOf(rel)),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}, items)
}

func parseItems(data []byte) ([]models.Item, error) {
	doc, err := xmp.FromString(string(data))
	if err != nil {
		return nil, err
	}
	return doc.Items()
}
