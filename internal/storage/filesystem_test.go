package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorePutCopyDelete(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx := context.Background()

	if err := fs.Put(ctx, "temp/a.jpg", []byte("img")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := fs.Copy(ctx, "temp/a.jpg", "saved/a.jpg"); err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "saved", "a.jpg"))
	if err != nil {
		t.Fatalf("read copied file: %v", err)
	}
	if string(data) != "img" {
		t.Fatalf("copied content = %q", data)
	}
	if err := fs.Delete(ctx, "temp/a.jpg"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "temp", "a.jpg")); !os.IsNotExist(err) {
		t.Fatal("temp file still present after delete")
	}
}

func TestFileStoreCopyMissingSourceFails(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if err := fs.Copy(context.Background(), "temp/missing.jpg", "saved/missing.jpg"); err == nil {
		t.Fatal("expected copy of a missing source to fail")
	}
}

func TestFileStoreDeleteMissingIsNoOp(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if err := fs.Delete(context.Background(), "temp/absent.jpg"); err != nil {
		t.Fatalf("Delete of a missing key returned error: %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if err := fs.Put(context.Background(), "../escape.jpg", []byte("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}
