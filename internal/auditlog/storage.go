// storage.go implements SQLite-based persistent audit logging.
//
// Separated from auditlog.go to isolate database concerns: auditlog.go
// provides the fluent entry builder, this file handles persistence. The
// workspace column stores a blake2b hash of the canonical workspace path,
// enabling per-workspace aggregation without recording the path itself.
//
// Errors during logging are reported to stderr and otherwise ignored. A
// tool call must succeed even when its audit record cannot be written.

package auditlog

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

// Logger writes audit log entries to a SQLite database.
type Logger struct {
	db        *sql.DB
	workspace string
}

func (l *Logger) log(e Entry) {
	var detail *string
	if len(e.Detail) > 0 {
		if b, err := json.Marshal(e.Detail); err == nil {
			s := string(b)
			detail = &s
		}
	}

	success := 0
	if e.Success {
		success = 1
	}

	_, err := l.db.Exec(`
		INSERT INTO log (start, end, workspace, source, action, path,
		                 matcher, replacements, success, error, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Start, e.End, l.workspace, e.Source, e.Action,
		nilIfEmpty(e.Path), nilIfEmpty(e.Matcher), nilIfZero(e.Replacements),
		success, nilIfEmpty(e.Error), detail,
	)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "coderd: audit log write failed: %v\n", err)
	}
}

// dbPathFunc returns the database path. Tests override this to use a temp
// directory.
var dbPathFunc = defaultDBPath

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to the current directory in unusual environments
		// (containers without HOME) rather than silently failing.
		return filepath.Join(".coderd", "log", "coderd-log.db")
	}
	return filepath.Join(home, ".coderd", "log", "coderd-log.db")
}

func dbPath() string {
	p := dbPathFunc()
	_ = os.MkdirAll(filepath.Dir(p), 0o755)
	return p
}

// hash derives the workspace identifier from the directory path.
func hash(s string) string {
	h, err := blake2b.New(8, nil) // 64-bit = 16 hex chars
	if err != nil {
		panic("blake2b.New failed: " + err.Error())
	}
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// migrate creates the log table if it does not exist.
func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS log (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			start        INTEGER NOT NULL,
			end          INTEGER NOT NULL,
			workspace    TEXT NOT NULL,
			source       TEXT NOT NULL,
			action       TEXT NOT NULL,
			path         TEXT,
			matcher      TEXT,
			replacements INTEGER,
			success      INTEGER NOT NULL,
			error        TEXT,
			detail       TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_log_start ON log(start);
		CREATE INDEX IF NOT EXISTS idx_log_workspace ON log(workspace);
		CREATE INDEX IF NOT EXISTS idx_log_source ON log(source);
	`)
	return err
}

// nilIfEmpty returns nil for empty strings, keeping NULLs queryable.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nilIfZero returns nil for zero values, meaning "not applicable".
func nilIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
