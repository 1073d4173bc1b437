// Package journal provides a SQLite-backed change journal that records
// environment variable changes observed by the watcher and CLI.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mikeleppane/envx-sub000/internal/events"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS changes (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	old_value  TEXT NOT NULL DEFAULT '',
	new_value  TEXT NOT NULL DEFAULT '',
	path       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_changes_name ON changes(name);
CREATE INDEX IF NOT EXISTS idx_changes_created_at ON changes(created_at);
`

// DB wraps a sql.DB with journal-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Append records one change.
func (db *DB) Append(c events.Change) error {
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO changes (id, kind, name, old_value, new_value, path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID.String(), string(c.Kind), c.Name, c.OldValue, c.NewValue, c.Path, c.Timestamp)
	if err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

// Recent returns the most recent changes, newest first.
func (db *DB) Recent(limit int) ([]events.Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, kind, name, old_value, new_value, path, created_at
		FROM changes
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

// ByVariable returns the change history of one variable, newest first.
func (db *DB) ByVariable(name string, limit int) ([]events.Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, kind, name, old_value, new_value, path, created_at
		FROM changes
		WHERE name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: by variable: %w", err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

// Count returns the number of journaled changes.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM changes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than the cutoff and returns the number removed.
func (db *DB) Prune(olderThan time.Time) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM changes WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("journal: prune rows: %w", err)
	}
	return n, nil
}

func scanChanges(rows *sql.Rows) ([]events.Change, error) {
	var out []events.Change
	for rows.Next() {
		var c events.Change
		var id, kind string
		if err := rows.Scan(&id, &kind, &c.Name, &c.OldValue, &c.NewValue, &c.Path, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("journal: parse id %q: %w", id, err)
		}
		c.ID = parsed
		c.Kind = events.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}
