package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/xmp/xmptest"
)

// watcherTestEnv sets up a library dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	libDir := t.TempDir()
	store, err := storage.NewFS(libDir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func writeDoc(t *testing.T, root, folder, content string) string {
	t.Helper()
	p := filepath.Join(root, samples.MetadataPath(folder))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_NewDocumentIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	rel := filepath.ToSlash(samples.MetadataPath("."))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	writeDoc(t, root, ".", xmptest.Single)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs != ""
	}, "new document not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == EventCreated+":"+rel {
				return true
			}
		}
		return false
	}, "expected created callback")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "kick.wav"), []byte("RIFF"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "notes.xmp"), []byte(xmptest.Single), 0o644)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 0 {
		t.Errorf("unexpected events: %v", events)
	}
}

func TestWatcher_NewFolderWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	// Creating the whole tree at once exercises the new-dir scan as well
	// as the per-file events.
	writeDoc(t, root, filepath.Join("Loops", "Break"), xmptest.Folder)

	rel := filepath.ToSlash(samples.MetadataPath("Loops/Break"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs != ""
	}, "document in new folder not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	p := writeDoc(t, root, "Drums", xmptest.Folder)
	if _, err := Sync(context.Background(), db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	rel := filepath.ToSlash(samples.MetadataPath("Drums"))

	cs, _ := db.GetChecksum(rel)
	if cs == "" {
		t.Fatal("precondition: document should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(p)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs == ""
	}, "deleted document still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	writeDoc(t, root, "Old", xmptest.Folder)
	if _, err := Sync(context.Background(), db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "Old"), filepath.Join(root, "New"))

	oldRel := filepath.ToSlash(samples.MetadataPath("Old"))
	newRel := filepath.ToSlash(samples.MetadataPath("New"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum(oldRel)
		newCS, _ := db.GetChecksum(newRel)
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
