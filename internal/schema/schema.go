// Package schema owns the SQLite schema, its migrations, and the
// connection-opening routine that applies durability and concurrency
// pragmas before handing a pool back to the stores.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestrelapp/chatstore/internal/storeerr"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: `
CREATE TABLE sessions (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    active_branch_id TEXT REFERENCES branches(id),
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL,
    deleted_at       INTEGER
);

CREATE TABLE branches (
    id               TEXT NOT NULL,
    session_id       TEXT NOT NULL REFERENCES sessions(id),
    parent_branch_id TEXT,
    created_at       INTEGER NOT NULL,
    deleted_at       INTEGER,
    PRIMARY KEY (id),
    UNIQUE (session_id, id)
);

CREATE TABLE messages (
    id         TEXT NOT NULL,
    session_id TEXT NOT NULL,
    branch_id  TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    role       TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
    content    TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    deleted_at INTEGER,
    PRIMARY KEY (id),
    UNIQUE (session_id, id),
    UNIQUE (session_id, branch_id, seq),
    FOREIGN KEY (session_id) REFERENCES sessions(id),
    FOREIGN KEY (session_id, branch_id) REFERENCES branches(session_id, id)
);

CREATE TABLE media_refs (
    id          TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    message_id  TEXT NOT NULL,
    uri         TEXT NOT NULL,
    mime_type   TEXT NOT NULL,
    size_bytes  INTEGER NOT NULL,
    duration_ms INTEGER,
    width_px    INTEGER,
    height_px   INTEGER,
    sha256_hex  TEXT,
    created_at  INTEGER NOT NULL,
    deleted_at  INTEGER,
    FOREIGN KEY (session_id) REFERENCES sessions(id),
    FOREIGN KEY (session_id, message_id) REFERENCES messages(session_id, id)
);

CREATE TABLE agent_events (
    id           TEXT PRIMARY KEY,
    session_id   TEXT NOT NULL,
    message_id   TEXT,
    event_type   TEXT NOT NULL,
    payload_json TEXT NOT NULL,
    created_at   INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id),
    FOREIGN KEY (session_id, message_id) REFERENCES messages(session_id, id)
);

CREATE INDEX idx_branches_session ON branches(session_id);
CREATE INDEX idx_messages_session_branch_seq ON messages(session_id, branch_id, seq);
CREATE INDEX idx_media_refs_session_message ON media_refs(session_id, message_id);
CREATE INDEX idx_agent_events_session ON agent_events(session_id);
CREATE INDEX idx_agent_events_session_message ON agent_events(session_id, message_id);
CREATE INDEX idx_sessions_updated_at ON sessions(updated_at DESC, id DESC);
`,
	},
}

// Open creates parent directories as needed, opens a SQLite connection
// with WAL journaling, foreign keys and a 5s busy timeout, applies any
// pending migrations, and returns the pool. The pool is capped at a
// single open connection: SQLite already serializes writers internally,
// and capping the Go-side pool avoids "database is locked" errors that
// surface as spurious busy-timeout exhaustion under concurrent callers.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeerr.NewIo(dir, err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storeerr.NewBootstrap("open", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeerr.NewBootstrap("pragma", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return storeerr.NewBootstrap("migration", err)
	}

	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return storeerr.NewBootstrap("migration", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeerr.NewBootstrap("migration", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return storeerr.NewBootstrap(fmt.Sprintf("migration:%s", m.name), err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		m.version, time.Now().UnixMilli()); err != nil {
		return storeerr.NewBootstrap(fmt.Sprintf("migration:%s", m.name), err)
	}
	if err := tx.Commit(); err != nil {
		return storeerr.NewBootstrap(fmt.Sprintf("migration:%s", m.name), err)
	}
	return nil
}

// IsForeignKeyViolation reports whether err came from SQLite rejecting a
// write that would have violated a foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "constraint failed: FOREIGN KEY")
}

// IsBusyOrLocked reports whether err came from SQLite refusing a statement
// because a writer held the database past the busy_timeout pragma set in
// Open. modernc.org/sqlite reports this as SQLITE_BUSY (5) or SQLITE_LOCKED
// (6); match on message text rather than a driver-specific error type so
// callers don't need to import the driver package.
func IsBusyOrLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}
