package fsio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jpl-au/coderd/internal/coderr"
)

func wantKind(t *testing.T, err error, kind coderr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	k, ok := coderr.KindOf(err)
	if !ok || k != kind {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadText(t *testing.T) {
	path := writeFile(t, "f.txt", []byte("hello\nworld\n"))
	got, err := ReadText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello\nworld\n" {
		t.Errorf("content = %q", got)
	}
}

func TestReadTextNotFound(t *testing.T) {
	_, err := ReadText(filepath.Join(t.TempDir(), "absent"))
	wantKind(t, err, coderr.NotFound)
}

func TestReadTextBinary(t *testing.T) {
	path := writeFile(t, "bin", []byte{'a', 0, 'b'})
	_, err := ReadText(path)
	wantKind(t, err, coderr.BinaryFile)
}

func TestReadTextInvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad", []byte{'a', 0xff, 0xfe, 'b'})
	_, err := ReadText(path)
	wantKind(t, err, coderr.InvalidUTF8)
}

func TestReadTextNulAfterHead(t *testing.T) {
	// A NUL past the first 8 KiB does not classify the file as binary,
	// and NUL is valid UTF-8, so the read succeeds.
	data := append(make([]byte, 0, binaryCheckBytes+2), []byte(repeat('a', binaryCheckBytes))...)
	data = append(data, 0)
	path := writeFile(t, "tail-nul", data)
	if _, err := ReadText(path); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func repeat(b byte, n int) string {
	s := make([]byte, n)
	for i := range s {
		s[i] = b
	}
	return string(s)
}

func TestWriteAtomic(t *testing.T) {
	path := writeFile(t, "f.txt", []byte("old"))
	if err := WriteAtomic(path, "new content"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new content" {
		t.Errorf("content = %q", data)
	}
	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestWriteAtomicPreservesMode(t *testing.T) {
	path := writeFile(t, "x.sh", []byte("#!/bin/sh\n"))
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(path, "#!/bin/sh\necho hi\n"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestWriteAtomicMkdir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
	if err := WriteAtomicMkdir(path, "nested"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "nested" {
		t.Errorf("content = %q", data)
	}
}

func TestLockPathExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.txt")

	l1, err := LockPath(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	// A second acquisition must time out while the first is held.
	if _, err := LockPath(path, 50*time.Millisecond); err == nil {
		t.Error("second lock acquired while first held")
	}

	l1.Unlock()

	l2, err := LockPath(path, time.Second)
	if err != nil {
		t.Fatalf("lock after release failed: %v", err)
	}
	l2.Unlock()
}

func TestUnlockNil(t *testing.T) {
	var l *FileLock
	l.Unlock() // must not panic
}

func TestExists(t *testing.T) {
	path := writeFile(t, "f", []byte("x"))
	if !Exists(path) {
		t.Error("Exists = false for existing file")
	}
	if Exists(filepath.Join(t.TempDir(), "nope")) {
		t.Error("Exists = true for missing file")
	}
}
