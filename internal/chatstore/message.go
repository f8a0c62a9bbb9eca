package chatstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// AppendMessage lazily creates the session's initial branch on the first
// call, then inserts the message at the next gapless seq within that
// branch, all inside one transaction.
func (s *Storage) AppendMessage(ctx context.Context, sessionID ids.SessionID, input NewMessage) (MessageRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MessageRecord{}, WrapDBError("append_message", err)
	}
	defer tx.Rollback()

	var activeBranch sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT active_branch_id FROM sessions WHERE id = ? AND deleted_at IS NULL`,
		sessionID.String(),
	).Scan(&activeBranch)
	if err == sql.ErrNoRows {
		return MessageRecord{}, storeerr.NewNotFound("session", sessionID.String())
	}
	if err != nil {
		return MessageRecord{}, WrapDBError("append_message", err)
	}

	var branchID ids.BranchID
	now := time.Now().UnixMilli()
	if activeBranch.Valid {
		branchID, err = ids.ParseBranchID(activeBranch.String)
		if err != nil {
			return MessageRecord{}, err
		}
	} else {
		branchID = ids.NewBranchID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO branches (id, session_id, parent_branch_id, created_at) VALUES (?, ?, NULL, ?)`,
			branchID.String(), sessionID.String(), now,
		); err != nil {
			return MessageRecord{}, WrapDBError("append_message", err)
		}
		if err := setActiveBranch(ctx, tx, sessionID, branchID); err != nil {
			return MessageRecord{}, err
		}
	}

	var nextSeq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE session_id = ? AND branch_id = ?`,
		sessionID.String(), branchID.String(),
	).Scan(&nextSeq)
	if err != nil {
		return MessageRecord{}, WrapDBError("append_message", err)
	}

	messageID := ids.NewMessageID()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, branch_id, seq, role, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		messageID.String(), sessionID.String(), branchID.String(), nextSeq, string(input.Role), input.Content, now, now,
	); err != nil {
		return MessageRecord{}, WrapDBError("append_message", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID.String()); err != nil {
		return MessageRecord{}, WrapDBError("append_message", err)
	}

	if err := tx.Commit(); err != nil {
		return MessageRecord{}, WrapDBError("append_message", err)
	}

	return MessageRecord{
		ID:        messageID,
		SessionID: sessionID,
		BranchID:  branchID,
		Seq:       nextSeq,
		Role:      input.Role,
		Content:   input.Content,
		CreatedAt: time.UnixMilli(now),
		UpdatedAt: time.UnixMilli(now),
	}, nil
}

// ListMessages returns the live messages of the session's active branch.
// A session with no active branch yet, or a soft-deleted session, lists
// as empty; a session that does not exist is NotFound.
func (s *Storage) ListMessages(ctx context.Context, sessionID ids.SessionID) ([]MessageRecord, error) {
	var activeBranch sql.NullString
	var deletedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT active_branch_id, deleted_at FROM sessions WHERE id = ?`,
		sessionID.String(),
	).Scan(&activeBranch, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, storeerr.NewNotFound("session", sessionID.String())
	}
	if err != nil {
		return nil, WrapDBError("list_messages", err)
	}
	if deletedAt.Valid || !activeBranch.Valid {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, branch_id, seq, role, content, created_at, updated_at
		 FROM messages WHERE session_id = ? AND branch_id = ? AND deleted_at IS NULL
		 ORDER BY seq ASC, id ASC`,
		sessionID.String(), activeBranch.String,
	)
	if err != nil {
		return nil, WrapDBError("list_messages", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		rec, err := scanMessage(rows)
		if err != nil {
			return nil, WrapDBError("list_messages", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetMessage returns a live message scoped to sessionID.
func (s *Storage) GetMessage(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID) (MessageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, branch_id, seq, role, content, created_at, updated_at
		 FROM messages WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
		sessionID.String(), messageID.String(),
	)
	rec, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return MessageRecord{}, storeerr.NewNotFound("message", messageID.String())
	}
	if err != nil {
		return MessageRecord{}, WrapDBError("get_message", err)
	}
	return rec, nil
}

// UpdateMessage patches a message's content. The predicate matches
// (session_id, id) exactly, so a message that exists in a different
// session is indistinguishable from a missing one.
func (s *Storage) UpdateMessage(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID, patch MessagePatch) (MessageRecord, error) {
	if patch.Content != nil {
		now := time.Now().UnixMilli()
		res, err := s.db.ExecContext(ctx,
			`UPDATE messages SET content = ?, updated_at = ? WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
			*patch.Content, now, sessionID.String(), messageID.String(),
		)
		if err != nil {
			return MessageRecord{}, WrapDBError("update_message", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return MessageRecord{}, storeerr.NewNotFound("message", messageID.String())
		}
	}
	return s.GetMessage(ctx, sessionID, messageID)
}

// SoftDeleteMessage marks a live message deleted without renumbering seq.
func (s *Storage) SoftDeleteMessage(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID) error {
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET deleted_at = ? WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
		now, sessionID.String(), messageID.String(),
	)
	if err != nil {
		return WrapDBError("soft_delete_message", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storeerr.NewNotFound("message", messageID.String())
	}
	return nil
}

// ForkFromHistory copies the live prefix of the active branch up to and
// including the pivot message into a new branch, makes that branch
// active, and soft-deletes the previous branch and its messages. The
// underlying connection pool is capped at one connection with
// _txlock=immediate on the DSN, so this transaction acquires the
// reserved lock up front exactly as BEGIN IMMEDIATE would.
func (s *Storage) ForkFromHistory(ctx context.Context, sessionID ids.SessionID, pivotMessageID ids.MessageID) (ForkOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}
	defer tx.Rollback()

	var activeBranch sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT active_branch_id FROM sessions WHERE id = ? AND deleted_at IS NULL`,
		sessionID.String(),
	).Scan(&activeBranch)
	if err == sql.ErrNoRows || (err == nil && !activeBranch.Valid) {
		return ForkOutcome{}, storeerr.NewNotFound("message", pivotMessageID.String())
	}
	if err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}
	oldBranchID, err := ids.ParseBranchID(activeBranch.String)
	if err != nil {
		return ForkOutcome{}, err
	}

	var pivotSeq int64
	err = tx.QueryRowContext(ctx,
		`SELECT seq FROM messages WHERE session_id = ? AND branch_id = ? AND id = ? AND deleted_at IS NULL`,
		sessionID.String(), oldBranchID.String(), pivotMessageID.String(),
	).Scan(&pivotSeq)
	if err == sql.ErrNoRows {
		return ForkOutcome{}, storeerr.NewNotFound("message", pivotMessageID.String())
	}
	if err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}

	newBranchID := ids.NewBranchID()
	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO branches (id, session_id, parent_branch_id, created_at) VALUES (?, ?, ?, ?)`,
		newBranchID.String(), sessionID.String(), oldBranchID.String(), now,
	); err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, seq, role, content, created_at, updated_at
		 FROM messages WHERE session_id = ? AND branch_id = ? AND deleted_at IS NULL AND seq <= ?
		 ORDER BY seq ASC, id ASC`,
		sessionID.String(), oldBranchID.String(), pivotSeq,
	)
	if err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}

	type copiedRow struct {
		oldID     ids.MessageID
		seq       int64
		role      string
		content   string
		createdAt int64
		updatedAt int64
	}
	var toCopy []copiedRow
	for rows.Next() {
		var idText, role, content string
		var seq, createdAt, updatedAt int64
		if err := rows.Scan(&idText, &seq, &role, &content, &createdAt, &updatedAt); err != nil {
			rows.Close()
			return ForkOutcome{}, WrapDBError("fork_from_history", err)
		}
		oldID, err := ids.ParseMessageID(idText)
		if err != nil {
			rows.Close()
			return ForkOutcome{}, err
		}
		toCopy = append(toCopy, copiedRow{oldID, seq, role, content, createdAt, updatedAt})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}
	rows.Close()

	remaps := make([]MessageIDRemap, 0, len(toCopy))
	for _, row := range toCopy {
		newID := ids.NewMessageID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, session_id, branch_id, seq, role, content, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			newID.String(), sessionID.String(), newBranchID.String(), row.seq, row.role, row.content, row.createdAt, row.updatedAt,
		); err != nil {
			return ForkOutcome{}, WrapDBError("fork_from_history", err)
		}
		remaps = append(remaps, MessageIDRemap{Old: row.oldID, New: newID})
	}

	if err := setActiveBranch(ctx, tx, sessionID, newBranchID); err != nil {
		return ForkOutcome{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET deleted_at = ? WHERE session_id = ? AND branch_id = ? AND deleted_at IS NULL`,
		now, sessionID.String(), oldBranchID.String(),
	); err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE branches SET deleted_at = ? WHERE id = ? AND session_id = ?`,
		now, oldBranchID.String(), sessionID.String(),
	); err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}

	if err := tx.Commit(); err != nil {
		return ForkOutcome{}, WrapDBError("fork_from_history", err)
	}

	return ForkOutcome{NewBranchID: newBranchID, MessageIDRemaps: remaps}, nil
}

func scanMessage(row rowScanner) (MessageRecord, error) {
	var (
		idText, sessionIDText, branchIDText, role, content string
		seq, createdAtMs, updatedAtMs                      int64
	)
	if err := row.Scan(&idText, &sessionIDText, &branchIDText, &seq, &role, &content, &createdAtMs, &updatedAtMs); err != nil {
		return MessageRecord{}, err
	}
	messageID, err := ids.ParseMessageID(idText)
	if err != nil {
		return MessageRecord{}, err
	}
	sessionID, err := ids.ParseSessionID(sessionIDText)
	if err != nil {
		return MessageRecord{}, err
	}
	branchID, err := ids.ParseBranchID(branchIDText)
	if err != nil {
		return MessageRecord{}, err
	}
	return MessageRecord{
		ID:        messageID,
		SessionID: sessionID,
		BranchID:  branchID,
		Seq:       seq,
		Role:      MessageRole(role),
		Content:   content,
		CreatedAt: time.UnixMilli(createdAtMs),
		UpdatedAt: time.UnixMilli(updatedAtMs),
	}, nil
}
