package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestLocalStorage_UploadDownload(t *testing.T) {
	baseDir := t.TempDir()
	storage, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "a.csv")
	content := []byte("id,name\n1,alpha\n")
	if err := os.WriteFile(srcPath, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	ctx := context.Background()

	objectPath := "datasets/a.csv"
	if err := storage.Upload(ctx, srcPath, objectPath); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	size, err := storage.Size(ctx, objectPath)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("size mismatch: got %d, want %d", size, len(content))
	}

	dstPath := filepath.Join(srcDir, "nested", "downloaded.csv")
	if err := storage.Download(ctx, objectPath, dstPath); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	downloaded, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(downloaded) != string(content) {
		t.Errorf("content mismatch: got %q, want %q", downloaded, content)
	}
}

func TestLocalStorage_DownloadNotFound(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	err = storage.Download(context.Background(), "missing.csv", filepath.Join(t.TempDir(), "x.csv"))
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}

	if _, err := storage.Size(context.Background(), "missing.csv"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound from Size, got %v", err)
	}
}

func TestLocalStorage_ListObjects(t *testing.T) {
	baseDir := t.TempDir()
	storage, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "src.csv")
	if err := os.WriteFile(src, []byte("h\n1\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	for _, p := range []string{"bench/a.csv", "bench/b.csv", "bench/sub/c.csv", "other/d.csv"} {
		if err := storage.Upload(ctx, src, p); err != nil {
			t.Fatalf("Upload failed for %s: %v", p, err)
		}
	}

	objects, err := storage.ListObjects(ctx, "bench")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}
	sort.Strings(objects)

	want := []string{"bench/a.csv", "bench/b.csv", "bench/sub/c.csv"}
	if len(objects) != len(want) {
		t.Fatalf("expected %d objects, got %d: %v", len(want), len(objects), objects)
	}
	for i := range want {
		if objects[i] != want[i] {
			t.Errorf("object %d: got %q, want %q", i, objects[i], want[i])
		}
	}

	empty, err := storage.ListObjects(ctx, "nope")
	if err != nil {
		t.Fatalf("ListObjects on missing prefix failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no objects for missing prefix, got %v", empty)
	}
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := storage.ListObjects(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := storage.Download(ctx, "a.csv", "b.csv"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
