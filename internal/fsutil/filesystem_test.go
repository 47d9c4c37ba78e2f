package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Lifecycle(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "graphs")

	if err := osfs.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	name := filepath.Join(dir, "a.png")
	w, err := osfs.Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("png")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := osfs.ReadFile(name)
	if err != nil || string(data) != "png" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}

	if err := osfs.Remove(name); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if osfs.Exists(name) {
		t.Error("file still exists after Remove")
	}
}

func TestMemoryFileSystem_Lifecycle(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/tmp/graphs", 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if !mfs.Exists("/tmp") || !mfs.Exists("/tmp/graphs") {
		t.Error("expected directories to exist")
	}

	w, err := mfs.Create("/tmp/graphs/a.png")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w.Write([]byte("hello, "))
	w.Write([]byte("world"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/tmp/graphs/a.png")
	if err != nil || string(data) != "hello, world" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
	if got := mfs.Files("/tmp/graphs"); len(got) != 1 {
		t.Errorf("Files = %v, want one entry", got)
	}

	if err := mfs.Remove("/tmp/graphs/a.png"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if mfs.Exists("/tmp/graphs/a.png") {
		t.Error("file still exists after Remove")
	}
	if got := mfs.Created(); len(got) != 1 || got[0] != "/tmp/graphs/a.png" {
		t.Errorf("Created = %v", got)
	}

	_, err = mfs.ReadFile("/tmp/graphs/a.png")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile after Remove err = %v, want ErrNotExist", err)
	}
	if err := mfs.Remove("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Remove missing err = %v, want ErrNotExist", err)
	}
}
