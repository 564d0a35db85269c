// Package synclog is an append-only sqlite history of past sync outcomes,
// purely observational: nothing in the sync algorithm itself reads it back.
package synclog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bucket TEXT NOT NULL,
    collection TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL,
    ok INTEGER NOT NULL,
    created INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    published INTEGER NOT NULL DEFAULT 0,
    conflicts INTEGER NOT NULL DEFAULT 0,
    errors INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sync_history_collection ON sync_history(bucket, collection);
CREATE INDEX IF NOT EXISTS idx_sync_history_started_at ON sync_history(started_at);
`

// Entry is one recorded Sync outcome.
type Entry struct {
	Bucket, Collection                   string
	StartedAt                            time.Time
	DurationMS                           int64
	OK                                   bool
	Created, Updated, Deleted, Published int
	Conflicts, Errors                    int
}

// Log is a sqlite-backed append-only sync history.
type Log struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite database at path and
// initializes its schema.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("synclog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("synclog: init schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Append records one sync outcome.
func (l *Log) Append(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
        INSERT INTO sync_history
            (bucket, collection, started_at, duration_ms, ok, created, updated, deleted, published, conflicts, errors)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Bucket, e.Collection, e.StartedAt, e.DurationMS, boolToInt(e.OK),
		e.Created, e.Updated, e.Deleted, e.Published, e.Conflicts, e.Errors,
	)
	if err != nil {
		return fmt.Errorf("synclog: append: %w", err)
	}
	return nil
}

// Recent returns the most recent entries for (bucket, collection), newest
// first, limited to n.
func (l *Log) Recent(ctx context.Context, bucket, collection string, n int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT bucket, collection, started_at, duration_ms, ok, created, updated, deleted, published, conflicts, errors
        FROM sync_history
        WHERE bucket = ? AND collection = ?
        ORDER BY started_at DESC
        LIMIT ?`, bucket, collection, n)
	if err != nil {
		return nil, fmt.Errorf("synclog: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ok int
		if err := rows.Scan(&e.Bucket, &e.Collection, &e.StartedAt, &e.DurationMS, &ok,
			&e.Created, &e.Updated, &e.Deleted, &e.Published, &e.Conflicts, &e.Errors); err != nil {
			return nil, fmt.Errorf("synclog: scan row: %w", err)
		}
		e.OK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying sqlite connection.
func (l *Log) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
