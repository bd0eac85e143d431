package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite database at path and creates the schema.
func InitDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("error open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error ping db: %w", err)
	}

	_, err = db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS targets (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'PENDING',
		response_time_ms INTEGER NOT NULL DEFAULT 0,
		certificate TEXT,
		domain_expiry TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		hosting TEXT NOT NULL DEFAULT '',
		last_checked INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating targets table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_targets_last_checked ON targets (last_checked DESC, created_at DESC);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating targets index: %w", err)
	}

	return db, nil
}
