// Package workspace confines every tool operation to a single root
// directory. A Root is canonicalized once at startup; Resolve turns
// caller-supplied paths into absolute paths proven to live under it, with
// symlinks on any existing prefix followed before the containment check.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jpl-au/coderd/internal/coderr"
)

// Root is the canonical workspace directory. Immutable after New.
type Root struct {
	dir string
}

// New canonicalizes dir and verifies it exists and is a directory.
func New(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, coderr.Wrap(coderr.IO, err, "resolve workspace %q", dir)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coderr.New(coderr.NotFound, "workspace %q does not exist", dir)
		}
		return nil, coderr.Wrap(coderr.IO, err, "canonicalize workspace %q", dir)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, coderr.Wrap(coderr.IO, err, "stat workspace %q", dir)
	}
	if !info.IsDir() {
		return nil, coderr.New(coderr.InvalidParams, "workspace %q is not a directory", dir)
	}
	return &Root{dir: canon}, nil
}

// Dir returns the canonical workspace directory.
func (r *Root) Dir() string { return r.dir }

// Resolve interprets userPath relative to the workspace (absolute paths are
// taken as-is), canonicalizes the longest existing prefix following
// symlinks, appends the remaining components lexically, and verifies the
// result stays inside the workspace on a path-component boundary. The
// target itself need not exist; callers that require existence check
// separately.
func (r *Root) Resolve(userPath string) (string, error) {
	if strings.ContainsRune(userPath, 0) {
		return "", coderr.New(coderr.InvalidParams, "path contains NUL byte")
	}
	if userPath == "" {
		return "", coderr.New(coderr.InvalidParams, "path is required")
	}

	raw := userPath
	if !filepath.IsAbs(raw) {
		raw = filepath.Join(r.dir, raw)
	}
	raw = filepath.Clean(raw)

	resolved, err := canonicalizeExistingPrefix(raw)
	if err != nil {
		return "", coderr.Wrap(coderr.IO, err, "resolve %q", userPath)
	}

	if !r.contains(resolved) {
		return "", coderr.New(coderr.OutsideWorkspace, "path escapes workspace: %s", userPath)
	}
	return resolved, nil
}

// Rel returns the workspace-relative form of a resolved path, used for diff
// headers and tool output. Falls back to the input when it is not under the
// root.
func (r *Root) Rel(safe string) string {
	rel, err := filepath.Rel(r.dir, safe)
	if err != nil || strings.HasPrefix(rel, "..") {
		return safe
	}
	return rel
}

// contains checks component-boundary containment so that /work does not
// match /work-evil.
func (r *Root) contains(path string) bool {
	if path == r.dir {
		return true
	}
	return strings.HasPrefix(path, r.dir+string(filepath.Separator))
}

// canonicalizeExistingPrefix resolves symlinks on the deepest existing
// ancestor of path and reattaches the non-existing suffix lexically. The
// suffix contains no ".." because path is already absolute and cleaned.
func canonicalizeExistingPrefix(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	ancestor := path
	var suffix []string
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			// Hit the filesystem root without finding anything.
			return path, nil
		}
		suffix = append(suffix, filepath.Base(ancestor))
		ancestor = parent

		resolved, err := filepath.EvalSymlinks(ancestor)
		if err == nil {
			for i := len(suffix) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, suffix[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}
}
