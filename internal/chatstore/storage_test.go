package chatstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/kestrelapp/chatstore/internal/storeerr"
)

func mainDatabaseFileForTest(t *testing.T, db *sql.DB) string {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), `PRAGMA database_list`)
	if err != nil {
		t.Fatalf("querying database_list: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var seq int
		var name, file string
		if err := rows.Scan(&seq, &name, &file); err != nil {
			t.Fatalf("scanning database_list: %v", err)
		}
		if name == "main" && file != "" {
			return file
		}
	}
	t.Fatal("main database has no backing file")
	return ""
}

func TestWrapDBErrorClassifiesBusyAsConflict(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	contender, err := sql.Open("sqlite", mainDatabaseFileForTest(t, s.db)+"?_pragma=busy_timeout(50)&_txlock=immediate")
	if err != nil {
		t.Fatalf("opening contending connection: %v", err)
	}
	defer contender.Close()
	contender.SetMaxOpenConns(1)

	holder, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("beginning holder transaction: %v", err)
	}
	defer holder.Rollback()

	_, err = contender.BeginTx(ctx, nil)
	if err == nil {
		t.Fatal("expected the contending transaction to be rejected while the lock is held")
	}

	wrapped := WrapDBError("probe", err)
	if !storeerr.Is(wrapped, storeerr.Conflict) {
		t.Fatalf("expected Conflict, got %v", wrapped)
	}
	var se *storeerr.Error
	if !errors.As(wrapped, &se) || se.Stage != "busy_timeout" {
		t.Errorf("expected stage busy_timeout, got %+v", wrapped)
	}
}

func TestWrapDBErrorFallsBackToInvariant(t *testing.T) {
	source := errors.New("no such table: bogus")
	wrapped := WrapDBError("probe", source)
	if !storeerr.Is(wrapped, storeerr.Invariant) {
		t.Fatalf("expected Invariant, got %v", wrapped)
	}
	if !errors.Is(wrapped, source) {
		t.Error("expected WrapDBError to preserve the source error via Unwrap")
	}
}
