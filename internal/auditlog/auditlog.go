// Package auditlog provides centralised audit logging for coderd tool
// invocations. Entries are stored in ~/.coderd/log/coderd-log.db and track
// every tool call the agent serves, across workspaces.
//
// # Fluent API
//
//	auditlog.Event("mcp:edit", "edit").
//		Path(rel).
//		Matcher(name).
//		Replacements(n).
//		Write(err)
//
// The source follows "mcp:{tool}" for MCP tool calls and "cli:{command}"
// for CLI-originated operations.
package auditlog

import (
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	global *Logger
	mu     sync.Mutex
)

// Entry represents a single audit log entry.
type Entry struct {
	Source string // e.g. "mcp:edit", "cli:serve"
	Action string // verb: read, write, edit, search, exec
	Path   string // workspace-relative target path, if any

	// Outcome fields, populated once the operation finishes.
	Matcher      string // edit only: cascade layer that matched
	Replacements int    // edit only: number of replacements made

	Start int64 // unix timestamp when Event() was called
	End   int64 // unix timestamp when Write() was called

	Success bool
	Error   string
	Detail  map[string]any
}

// Builder constructs a log entry using a fluent API. Create with Event,
// chain setters, then call Write to persist.
type Builder struct {
	entry Entry
}

// Event creates a new log entry builder for an operation.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().Unix(),
		},
	}
}

// Path sets the workspace-relative path this operation targets.
func (b *Builder) Path(path string) *Builder {
	b.entry.Path = path
	return b
}

// Matcher records which cascade layer decided an edit.
func (b *Builder) Matcher(name string) *Builder {
	b.entry.Matcher = name
	return b
}

// Replacements records how many occurrences an edit replaced.
func (b *Builder) Replacements(n int) *Builder {
	b.entry.Replacements = n
	return b
}

// Detail adds operation-specific data that has no standard field: search
// patterns, match counts, exit codes. May be called repeatedly.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write persists the entry, deriving success/failure from err.
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().Unix()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global logger. Safe to call multiple times. Errors
// are returned but callers may ignore them; logging is best-effort.
func Open() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}
	l, err := open(dbPath())
	if err != nil {
		return err
	}
	global = l
	return nil
}

// SetWorkspace sets the workspace identifier recorded with subsequent
// entries. The identifier is a hash of the canonical workspace path, so
// logs aggregate per workspace without storing the path itself.
func SetWorkspace(dir string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.workspace = hash(dir)
	}
}

// Log writes an entry. A no-op when the logger is not initialised.
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()
	if l == nil {
		return
	}
	l.log(e)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}

func open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Logger{db: db}, nil
}
