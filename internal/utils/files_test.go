package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "a.md")
	if err := SafeWriteFile(path, []byte("hello")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "hello" {
		t.Fatalf("read back = %q, %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestFindJobFileWalksUp(t *testing.T) {
	root := t.TempDir()
	job := filepath.Join(root, JobFileName)
	if err := os.WriteFile(job, []byte("region: LIMA\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "a", "b")
	if err := EnsureDir(deep); err != nil {
		t.Fatal(err)
	}
	got, err := FindJobFile(deep)
	if err != nil {
		t.Fatalf("FindJobFile: %v", err)
	}
	if got != job {
		t.Fatalf("got %s, want %s", got, job)
	}

	if _, err := FindJobFile(t.TempDir()); !errors.Is(err, ErrNoJobFile) {
		t.Fatalf("expected ErrNoJobFile, got %v", err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected %q", b)
	}
}
