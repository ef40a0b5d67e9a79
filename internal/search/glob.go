package search

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jpl-au/coderd/internal/coderr"
)

// MaxGlobResults caps how many paths a glob call returns.
const MaxGlobResults = 1000

// globMatch is a matched file with its modification time, kept for sorting.
type globMatch struct {
	path string
	mod  time.Time
}

// Glob returns paths under dir matching a doublestar pattern (*, **, ?,
// {a,b}), relative to dir, newest first, capped at MaxGlobResults. Hidden
// directories are skipped unless the pattern explicitly names them.
func Glob(dir, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, coderr.New(coderr.InvalidParams, "pattern is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, coderr.New(coderr.InvalidParams, "invalid glob pattern: %s", pattern)
	}
	if err := statDir(dir); err != nil {
		return nil, err
	}

	// Hidden directories are only walked when the pattern names one.
	wantHidden := strings.HasPrefix(pattern, ".") || strings.Contains(pattern, "/.")

	var matches []globMatch
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && !wantHidden {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ok, matchErr := doublestar.Match(pattern, filepath.ToSlash(rel))
		if matchErr != nil || !ok {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		matches = append(matches, globMatch{path: rel, mod: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, coderr.Wrap(coderr.IO, err, "walk %s", dir)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].mod.After(matches[j].mod)
	})
	if len(matches) > MaxGlobResults {
		matches = matches[:MaxGlobResults]
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.path
	}
	return out, nil
}

// statDir verifies dir exists and is a directory before a search walks it.
func statDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return coderr.New(coderr.NotFound, "directory not found: %s", dir)
		}
		return coderr.Wrap(coderr.IO, err, "stat %s", dir)
	}
	if !info.IsDir() {
		return coderr.New(coderr.InvalidParams, "not a directory: %s", dir)
	}
	return nil
}
