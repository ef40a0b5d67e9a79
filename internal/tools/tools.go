// Package tools implements the agent's tool operations — edit, read,
// write, grep, glob, bash — over a workspace root. The MCP layer is a thin
// adapter over this package so the same behaviour is testable without a
// protocol client.
package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jpl-au/coderd/internal/coderr"
	"github.com/jpl-au/coderd/internal/config"
	"github.com/jpl-au/coderd/internal/edit"
	"github.com/jpl-au/coderd/internal/fsio"
	"github.com/jpl-au/coderd/internal/search"
	"github.com/jpl-au/coderd/internal/shell"
	"github.com/jpl-au/coderd/internal/workspace"
)

// Service executes tool operations inside one workspace.
type Service struct {
	Root    *workspace.Root
	Cfg     *config.Config
	Sandbox bool
}

// New creates a Service for a workspace root.
func New(root *workspace.Root, cfg *config.Config, sandbox bool) *Service {
	return &Service{Root: root, Cfg: cfg, Sandbox: sandbox}
}

// EditRequest is one edit tool call.
type EditRequest struct {
	Path       string
	Old        string
	New        string
	ReplaceAll bool
}

// EditResult reports a completed edit.
type EditResult struct {
	Path         string // workspace-relative
	Diff         string
	Replacements int
	Matcher      string
	Created      bool // true when an empty Old created a new file
}

// Edit locates Old in the target file with the fuzzy matcher cascade and
// replaces it with New. The call holds an advisory file lock across
// read → match → atomic write, so concurrent edits of one path serialize
// while other paths proceed in parallel. An empty Old creates the file when
// it does not exist yet.
func (s *Service) Edit(req EditRequest) (EditResult, error) {
	safe, err := s.Root.Resolve(req.Path)
	if err != nil {
		return EditResult{}, err
	}
	rel := s.Root.Rel(safe)

	if req.Old == "" {
		if fsio.Exists(safe) {
			return EditResult{}, coderr.New(coderr.InvalidParams,
				"old string must not be empty for existing file %s; provide the text to replace", rel)
		}
		if err := fsio.WriteAtomicMkdir(safe, req.New); err != nil {
			return EditResult{}, err
		}
		return EditResult{Path: rel, Created: true, Replacements: 1}, nil
	}

	lock, err := fsio.LockPath(safe, fsio.DefaultLockTimeout)
	if err != nil {
		return EditResult{}, err
	}
	defer lock.Unlock()

	if err := s.checkSize(safe); err != nil {
		return EditResult{}, err
	}
	content, err := fsio.ReadText(safe)
	if err != nil {
		return EditResult{}, err
	}

	mode := edit.ReplaceFirst
	if req.ReplaceAll {
		mode = edit.ReplaceAll
	}
	res, err := edit.Apply(content, req.Old, req.New, mode, edit.Options{
		Path:     rel,
		Deadline: time.Now().Add(s.Cfg.EditTimeout()),
	})
	if err != nil {
		return EditResult{}, err
	}

	if err := fsio.WriteAtomic(safe, res.Content); err != nil {
		return EditResult{}, err
	}
	return EditResult{
		Path:         rel,
		Diff:         res.Diff,
		Replacements: res.Replacements,
		Matcher:      edit.MatcherName(res.MatcherID),
	}, nil
}

// Read default and truncation bounds, matching what LLM clients expect
// from a cat -n style reader.
const (
	DefaultReadLimit = 2000
	maxLineLength    = 2000
)

// Read returns numbered lines from a file, with a 1-based offset and a line
// limit. Overlong lines are truncated on a rune boundary.
func (s *Service) Read(path string, offset, limit int) (string, error) {
	safe, err := s.Root.Resolve(path)
	if err != nil {
		return "", err
	}
	if offset < 1 {
		offset = 1
	}
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	if err := s.checkSize(safe); err != nil {
		return "", err
	}
	content, err := fsio.ReadText(safe)
	if err != nil {
		return "", err
	}

	lines := strings.Split(content, "\n")
	// A trailing newline yields a final empty element that is not a line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	start := min(offset-1, total)
	end := min(start+limit, total)

	width := len(fmt.Sprint(end))
	var b strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineLength {
			line = truncateOnRuneBoundary(line, maxLineLength)
		}
		fmt.Fprintf(&b, "%*d\t%s\n", width, i+1, line)
	}
	if end < total {
		fmt.Fprintf(&b, "\n... (%d more lines, %d total)\n", total-end, total)
	}
	return b.String(), nil
}

func truncateOnRuneBoundary(s string, n int) string {
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// WriteResult reports a completed write.
type WriteResult struct {
	Path    string
	Created bool
	Lines   int
}

// Write stores content at path atomically, creating parent directories as
// needed.
func (s *Service) Write(path, content string) (WriteResult, error) {
	safe, err := s.Root.Resolve(path)
	if err != nil {
		return WriteResult{}, err
	}
	existed := fsio.Exists(safe)
	if err := fsio.WriteAtomicMkdir(safe, content); err != nil {
		return WriteResult{}, err
	}
	lines := strings.Count(content, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		lines++
	}
	return WriteResult{Path: s.Root.Rel(safe), Created: !existed, Lines: lines}, nil
}

// Grep searches file contents under an optional sub-path of the workspace.
func (s *Service) Grep(path string, opts search.GrepOptions) (string, error) {
	dir := s.Root.Dir()
	if path != "" {
		safe, err := s.Root.Resolve(path)
		if err != nil {
			return "", err
		}
		dir = safe
	}
	return search.Grep(dir, opts)
}

// Glob lists workspace files matching a doublestar pattern.
func (s *Service) Glob(path, pattern string) ([]string, error) {
	dir := s.Root.Dir()
	if path != "" {
		safe, err := s.Root.Resolve(path)
		if err != nil {
			return nil, err
		}
		dir = safe
	}
	return search.Glob(dir, pattern)
}

// Bash runs a shell command in the workspace. timeout of zero applies the
// configured default; values above the hard maximum are clamped.
func (s *Service) Bash(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.Cfg.BashTimeout()
	}
	if timeout > config.MaxBashTimeout {
		timeout = config.MaxBashTimeout
	}

	opts := shell.Options{
		Dir:            s.Root.Dir(),
		Timeout:        timeout,
		MaxOutputBytes: s.Cfg.MaxOutputBytes(),
	}
	if s.Sandbox {
		opts.SandboxCommand = s.Cfg.Bash.SandboxCommand
	}
	res, err := shell.Run(ctx, command, opts)
	if err != nil {
		return "", err
	}
	return shell.Format(res), nil
}

// checkSize rejects files over the configured limit before they are read
// into memory.
func (s *Service) checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return coderr.New(coderr.NotFound, "file not found: %s", s.Root.Rel(path))
		}
		return coderr.Wrap(coderr.IO, err, "stat %s", path)
	}
	if info.IsDir() {
		return coderr.New(coderr.InvalidParams, "not a file: %s", s.Root.Rel(path))
	}
	if info.Size() > s.Cfg.MaxFileSize() {
		return coderr.New(coderr.InvalidParams, "file exceeds size limit (%d bytes): %s",
			s.Cfg.MaxFileSize(), s.Root.Rel(path))
	}
	return nil
}
