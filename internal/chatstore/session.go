package chatstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// CreateSession inserts a session with no active branch; the first
// AppendMessage call gives it one.
func (s *Storage) CreateSession(ctx context.Context, input NewSession) (SessionRecord, error) {
	title := input.Title
	if title == "" {
		title = DefaultSessionTitle
	}
	id := ids.NewSessionID()
	now := time.Now().UnixMilli()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, active_branch_id, created_at, updated_at) VALUES (?, ?, NULL, ?, ?)`,
		id.String(), title, now, now,
	)
	if err != nil {
		return SessionRecord{}, WrapDBError("create_session", err)
	}

	return SessionRecord{
		ID:        id,
		Title:     title,
		CreatedAt: time.UnixMilli(now),
		UpdatedAt: time.UnixMilli(now),
	}, nil
}

// RenameSession updates a live session's title and bumps updated_at.
func (s *Storage) RenameSession(ctx context.Context, id ids.SessionID, newTitle string) error {
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		newTitle, now, id.String(),
	)
	if err != nil {
		return WrapDBError("rename_session", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storeerr.NewNotFound("session", id.String())
	}
	return nil
}

// ListSessions returns live sessions, most recently touched first.
func (s *Storage) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, active_branch_id, created_at, updated_at
		 FROM sessions WHERE deleted_at IS NULL ORDER BY updated_at DESC, id DESC`,
	)
	if err != nil {
		return nil, WrapDBError("list_sessions", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, WrapDBError("list_sessions", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSession returns a live session or NotFound.
func (s *Storage) GetSession(ctx context.Context, id ids.SessionID) (SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, active_branch_id, created_at, updated_at
		 FROM sessions WHERE id = ? AND deleted_at IS NULL`,
		id.String(),
	)
	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return SessionRecord{}, storeerr.NewNotFound("session", id.String())
	}
	if err != nil {
		return SessionRecord{}, WrapDBError("get_session", err)
	}
	return rec, nil
}

// SoftDeleteSession marks a live session deleted. An already-deleted or
// missing session both fail the same live-row predicate, so both report
// NotFound.
func (s *Storage) SoftDeleteSession(ctx context.Context, id ids.SessionID) error {
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, id.String(),
	)
	if err != nil {
		return WrapDBError("soft_delete_session", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storeerr.NewNotFound("session", id.String())
	}
	return nil
}

// RestoreSession clears deleted_at and resets updated_at to now, treating
// the restore itself as a fresh mutation.
func (s *Storage) RestoreSession(ctx context.Context, id ids.SessionID) error {
	var deletedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT deleted_at FROM sessions WHERE id = ?`, id.String()).Scan(&deletedAt)
	if err == sql.ErrNoRows {
		return storeerr.NewNotFound("session", id.String())
	}
	if err != nil {
		return WrapDBError("restore_session", err)
	}
	if !deletedAt.Valid {
		return storeerr.NewConflict("restore_already_live")
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET deleted_at = NULL, updated_at = ? WHERE id = ?`,
		now, id.String(),
	)
	if err != nil {
		return WrapDBError("restore_session", err)
	}
	return nil
}

// setActiveBranch validates that branchID belongs to sessionID and points
// the session at it. Used internally by AppendMessage and ForkFromHistory
// inside their own transactions, so it takes an executor rather than
// reaching for s.db directly.
func setActiveBranch(ctx context.Context, tx *sql.Tx, sessionID ids.SessionID, branchID ids.BranchID) error {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM branches WHERE id = ? AND session_id = ? AND deleted_at IS NULL`,
		branchID.String(), sessionID.String(),
	).Scan(&count)
	if err != nil {
		return WrapDBError("set_active_branch", err)
	}
	if count == 0 {
		return storeerr.NewInvariant("set_active_branch", fmt.Errorf("branch does not belong to session"))
	}
	_, err = tx.ExecContext(ctx, `UPDATE sessions SET active_branch_id = ? WHERE id = ?`, branchID.String(), sessionID.String())
	if err != nil {
		return WrapDBError("set_active_branch", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var (
		idText       string
		title        string
		activeBranch sql.NullString
		createdAtMs  int64
		updatedAtMs  int64
	)
	if err := row.Scan(&idText, &title, &activeBranch, &createdAtMs, &updatedAtMs); err != nil {
		return SessionRecord{}, err
	}
	sessionID, err := ids.ParseSessionID(idText)
	if err != nil {
		return SessionRecord{}, err
	}
	rec := SessionRecord{
		ID:        sessionID,
		Title:     title,
		CreatedAt: time.UnixMilli(createdAtMs),
		UpdatedAt: time.UnixMilli(updatedAtMs),
	}
	if activeBranch.Valid {
		branchID, err := ids.ParseBranchID(activeBranch.String)
		if err != nil {
			return SessionRecord{}, err
		}
		rec.ActiveBranchID = &branchID
	}
	return rec, nil
}
