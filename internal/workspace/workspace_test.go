package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpl-au/coderd/internal/coderr"
)

func newRoot(t *testing.T) *Root {
	t.Helper()
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

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

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"))
	wantKind(t, err, coderr.NotFound)
}

func TestNewRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(file)
	wantKind(t, err, coderr.InvalidParams)
}

func TestResolveRelative(t *testing.T) {
	r := newRoot(t)
	got, err := r.Resolve("sub/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(r.Dir(), "sub", "file.txt")
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveDotDotEscape(t *testing.T) {
	r := newRoot(t)
	_, err := r.Resolve("../etc/passwd")
	wantKind(t, err, coderr.OutsideWorkspace)
}

func TestResolveAbsoluteOutside(t *testing.T) {
	r := newRoot(t)
	_, err := r.Resolve("/etc/passwd")
	wantKind(t, err, coderr.OutsideWorkspace)
}

func TestResolveInteriorDotDot(t *testing.T) {
	r := newRoot(t)
	// Cleans to a path inside the workspace; allowed.
	got, err := r.Resolve("sub/../file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(r.Dir(), "file.txt") {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolveComponentBoundary(t *testing.T) {
	parent := t.TempDir()
	work := filepath.Join(parent, "work")
	evil := filepath.Join(parent, "work-evil")
	for _, d := range []string{work, evil} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	r, err := New(work)
	if err != nil {
		t.Fatal(err)
	}
	// String-prefix match is not enough: work-evil must be rejected.
	_, err = r.Resolve(filepath.Join(evil, "secret.txt"))
	wantKind(t, err, coderr.OutsideWorkspace)
}

func TestResolveWorkspaceItself(t *testing.T) {
	r := newRoot(t)
	got, err := r.Resolve(".")
	if err != nil {
		t.Fatal(err)
	}
	if got != r.Dir() {
		t.Errorf("Resolve(.) = %q, want root %q", got, r.Dir())
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	r := newRoot(t)

	link := filepath.Join(r.Dir(), "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	_, err := r.Resolve("link/secret.txt")
	wantKind(t, err, coderr.OutsideWorkspace)
}

func TestResolveSymlinkInside(t *testing.T) {
	r := newRoot(t)
	target := filepath.Join(r.Dir(), "real")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(r.Dir(), "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	got, err := r.Resolve("alias/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(target, "file.txt") {
		t.Errorf("Resolve = %q, want symlink followed to %q", got, target)
	}
}

func TestResolveNulByte(t *testing.T) {
	r := newRoot(t)
	_, err := r.Resolve("bad\x00name")
	wantKind(t, err, coderr.InvalidParams)
}

func TestResolveEmpty(t *testing.T) {
	r := newRoot(t)
	_, err := r.Resolve("")
	wantKind(t, err, coderr.InvalidParams)
}

func TestRel(t *testing.T) {
	r := newRoot(t)
	safe, err := r.Resolve("a/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if rel := r.Rel(safe); rel != filepath.Join("a", "b.txt") {
		t.Errorf("Rel = %q", rel)
	}
}

func TestErrorsIsKindMatching(t *testing.T) {
	r := newRoot(t)
	_, err := r.Resolve("../x")
	if !errors.Is(err, &coderr.Error{Kind: coderr.OutsideWorkspace}) {
		t.Errorf("errors.Is kind match failed for %v", err)
	}
}
