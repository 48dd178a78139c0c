package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/xmp/xmptest"
)

func TestSync(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.DiscardHandler)

	_ = store.Write(samples.MetadataPath("Drums"), []byte(xmptest.Folder))
	_ = store.Write(samples.MetadataPath("."), []byte(xmptest.Single))
	_ = store.Write(samples.MetadataPath("Broken"), []byte("not xml <"))

	stats, err := Sync(context.Background(), db, store, logger)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Indexed != 2 || stats.Failed != 1 || stats.Removed != 0 {
		t.Errorf("first sync = %+v", stats)
	}

	files, total, _ := db.ListFiles("Drums|Kick", 0, 0)
	if total != 2 {
		t.Fatalf("Drums|Kick files = %+v", files)
	}
	if files[0].Path != "Drums/bd1.wav" || files[1].Path != "kick.wav" {
		t.Errorf("files = %+v", files)
	}

	stats, _ = Sync(context.Background(), db, store, logger)
	if stats.Indexed != 0 {
		t.Errorf("unchanged documents re-indexed: %+v", stats)
	}

	_ = os.Remove(filepath.Join(dir, samples.MetadataPath("Drums")))
	stats, _ = Sync(context.Background(), db, store, logger)
	if stats.Removed != 1 {
		t.Errorf("stale document not removed: %+v", stats)
	}
	if _, total, _ := db.ListFiles("", 0, 0); total != 1 {
		t.Errorf("files left = %d, want 1", total)
	}
}

func TestSync_Cancelled(t *testing.T) {
	dir := t.TempDir()
	store, _ := storage.NewFS(dir)
	_ = store.Write(samples.MetadataPath("Drums"), []byte(xmptest.Folder))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Sync(ctx, testDB(t), store, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected error from cancelled sync")
	}
}
