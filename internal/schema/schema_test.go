package schema

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestDB(t *testing.T) (context.Context, string) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	return ctx, dbPath
}

func TestOpenAppliesPragmasAndMigrations(t *testing.T) {
	ctx, dbPath := openTestDB(t)

	db, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&journalMode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if !strings.EqualFold(journalMode, "wal") {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	var foreignKeys int
	if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&foreignKeys); err != nil {
		t.Fatalf("querying foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("foreign_keys = %d, want 1", foreignKeys)
	}

	var version int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	if version != 1 {
		t.Errorf("schema_migrations max version = %d, want 1", version)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx, dbPath := openTestDB(t)

	db1, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	db1.Close()

	db2, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer db2.Close()

	var count int
	if err := db2.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one migration record after reopening, got %d", count)
	}
}

func TestForeignKeyViolationRejected(t *testing.T) {
	ctx, dbPath := openTestDB(t)

	db, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx,
		`INSERT INTO branches (id, session_id, parent_branch_id, created_at) VALUES ('b1', 'missing-session', NULL, 0)`,
	)
	if err == nil {
		t.Fatal("expected foreign key violation inserting a branch for a missing session")
	}
	if !IsForeignKeyViolation(err) {
		t.Errorf("expected IsForeignKeyViolation to recognize %v", err)
	}
}

func TestIsForeignKeyViolationNilAndUnrelated(t *testing.T) {
	if IsForeignKeyViolation(nil) {
		t.Error("expected nil error to not be a foreign key violation")
	}
	if IsForeignKeyViolation(errors.New("syntax error")) {
		t.Error("expected an unrelated error to not be a foreign key violation")
	}
}

func TestBusyOrLockedRejectedUnderContention(t *testing.T) {
	ctx, dbPath := openTestDB(t)

	db, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	contender, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(50)&_txlock=immediate")
	if err != nil {
		t.Fatalf("opening contending connection: %v", err)
	}
	defer contender.Close()
	contender.SetMaxOpenConns(1)

	holder, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("beginning holder transaction: %v", err)
	}
	defer holder.Rollback()

	_, err = contender.BeginTx(ctx, nil)
	if err == nil {
		t.Fatal("expected the contending transaction to be rejected while the lock is held")
	}
	if !IsBusyOrLocked(err) {
		t.Errorf("expected IsBusyOrLocked to recognize %v", err)
	}
}

func TestIsBusyOrLockedNilAndUnrelated(t *testing.T) {
	if IsBusyOrLocked(nil) {
		t.Error("expected nil error to not be busy/locked")
	}
	if IsBusyOrLocked(errors.New("syntax error")) {
		t.Error("expected an unrelated error to not be busy/locked")
	}
}
