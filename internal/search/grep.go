// Package search implements the content and filename search behind the
// grep and glob tools. Grep shells out to ripgrep when available for
// gitignore-aware parallel search and falls back to a pure-Go regexp walk
// otherwise.
package search

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jpl-au/coderd/internal/coderr"
)

// DefaultMaxResults caps grep output lines when the caller does not set a
// limit.
const DefaultMaxResults = 100

// maxWalkDepth bounds the fallback walker's recursion. The walker never
// follows symlinked directories, so this is a second line of defence
// against pathological trees.
const maxWalkDepth = 50

// GrepOptions configures a content search.
type GrepOptions struct {
	Pattern      string // regex pattern (required)
	Include      string // glob filter on file names, e.g. "*.go"
	MaxResults   int    // output line cap; 0 means DefaultMaxResults
	ContextLines int    // context lines around matches
}

// Grep searches under dir for a regex pattern and returns formatted
// path:line:content output. Uses rg when present on PATH.
func Grep(dir string, opts GrepOptions) (string, error) {
	if opts.Pattern == "" {
		return "", coderr.New(coderr.InvalidParams, "pattern is required")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	// A single file is a valid search target; only absence is an error.
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return "", coderr.New(coderr.NotFound, "search path not found: %s", dir)
		}
		return "", coderr.Wrap(coderr.IO, err, "stat %s", dir)
	}

	if rg, err := exec.LookPath("rg"); err == nil {
		return grepRipgrep(rg, dir, opts)
	}
	return grepFallback(dir, opts)
}

// grepRipgrep runs rg and truncates client-side: rg's --max-count is
// per-file, so a generous per-file cap is passed and the total is trimmed
// here.
func grepRipgrep(rg, dir string, opts GrepOptions) (string, error) {
	perFile := opts.MaxResults * 10
	if perFile < 100 {
		perFile = 100
	}

	args := []string{
		"--color", "never",
		"--line-number",
		"--no-heading",
		"--max-count", strconv.Itoa(perFile),
	}
	if opts.ContextLines > 0 {
		args = append(args, "-C", strconv.Itoa(opts.ContextLines))
	}
	if opts.Include != "" {
		args = append(args, "--glob", opts.Include)
	}
	args = append(args, "--", opts.Pattern, dir)

	out, err := exec.Command(rg, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// rg exits 1 for no matches, 2 for real errors.
			if exitErr.ExitCode() == 1 {
				return "No matches found.", nil
			}
			return "", coderr.New(coderr.InvalidParams, "grep failed: %s",
				strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", coderr.Wrap(coderr.IO, err, "run ripgrep")
	}
	if len(out) == 0 {
		return "No matches found.", nil
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) > opts.MaxResults {
		truncated := strings.Join(lines[:opts.MaxResults], "\n")
		return fmt.Sprintf("%s\n\n... truncated (%d results shown out of %d+)",
			truncated, opts.MaxResults, len(lines)), nil
	}
	return strings.Join(lines, "\n"), nil
}

// grepFallback is the pure-Go search used when rg is not installed: no
// gitignore support, no parallelism, depth-limited, symlinks not followed.
func grepFallback(dir string, opts GrepOptions) (string, error) {
	re, err := regexp.Compile(opts.Pattern)
	if err != nil {
		return "", coderr.New(coderr.InvalidParams, "invalid regex %q: %v", opts.Pattern, err)
	}

	var results []string
	walk(dir, 0, func(path string) bool {
		if opts.Include != "" {
			if ok, _ := filepath.Match(opts.Include, filepath.Base(path)); !ok {
				return true
			}
		}
		data, err := os.ReadFile(path)
		if err != nil || strings.IndexByte(string(data), 0) >= 0 {
			return true
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				results = append(results, fmt.Sprintf("%s:%d:%s", path, i+1, line))
				if len(results) >= opts.MaxResults {
					return false
				}
			}
		}
		return true
	})

	if len(results) == 0 {
		return "No matches found. (Note: rg not installed, using basic fallback)", nil
	}
	return strings.Join(results, "\n"), nil
}

// walk visits regular files under dir depth-first. The callback returns
// false to stop the walk.
func walk(dir string, depth int, fn func(path string) bool) bool {
	if depth > maxWalkDepth {
		return true
	}
	info, err := os.Lstat(dir)
	if err != nil {
		return true
	}
	if info.Mode().IsRegular() {
		return fn(dir)
	}
	if !info.IsDir() {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && e.IsDir() {
			continue
		}
		if !walk(filepath.Join(dir, name), depth+1, fn) {
			return false
		}
	}
	return true
}
