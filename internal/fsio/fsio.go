// Package fsio provides the file plumbing under the tools: reading with
// binary and UTF-8 checks, crash-safe atomic writes, and per-path advisory
// locking so concurrent edit calls against the same file serialize.
package fsio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/jpl-au/coderd/internal/coderr"
)

// binaryCheckBytes is how much of a file's head is scanned for NUL bytes.
const binaryCheckBytes = 8192

// ReadText reads path and verifies it is editable text: a NUL byte in the
// first 8 KiB classifies the file as binary, and the whole content must be
// valid UTF-8.
func ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", coderr.New(coderr.NotFound, "file not found: %s", path)
		}
		return "", coderr.Wrap(coderr.IO, err, "open %s", path)
	}
	defer f.Close()

	head := make([]byte, binaryCheckBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", coderr.Wrap(coderr.IO, err, "read %s", path)
	}
	head = head[:n]
	if bytes.IndexByte(head, 0) >= 0 {
		return "", coderr.New(coderr.BinaryFile, "refusing to edit binary file: %s", path)
	}

	rest, err := io.ReadAll(f)
	if err != nil {
		return "", coderr.Wrap(coderr.IO, err, "read %s", path)
	}
	content := append(head, rest...)
	if !utf8.Valid(content) {
		return "", coderr.New(coderr.InvalidUTF8, "file is not valid UTF-8: %s", path)
	}
	return string(content), nil
}

// WriteAtomic writes content to path via a sibling temp file, fsync, and
// rename, so a crash mid-write never leaves a partial file. The parent
// directory must exist.
func WriteAtomic(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return coderr.Wrap(coderr.IO, err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return coderr.Wrap(coderr.IO, err, "write temp file for %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return coderr.Wrap(coderr.IO, err, "sync temp file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		return coderr.Wrap(coderr.IO, err, "close temp file for %s", path)
	}

	// Preserve the destination's mode when it already exists.
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	}

	if err := os.Rename(tmpName, path); err != nil {
		return coderr.Wrap(coderr.IO, err, "replace %s", path)
	}
	return nil
}

// WriteAtomicMkdir is WriteAtomic preceded by parent directory creation.
func WriteAtomicMkdir(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return coderr.Wrap(coderr.IO, err, "create directories for %s", path)
	}
	return WriteAtomic(path, content)
}

// Exists reports whether path exists, without following a trailing symlink
// distinction; tools only need presence.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// ErrLockTimeout is returned when a per-path lock cannot be acquired in
// time.
var ErrLockTimeout = fmt.Errorf("timeout acquiring file lock")
