package chatstore

import (
	"context"
	"database/sql"

	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/schema"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// SessionStore manages session lifecycle: creation, renaming, listing and
// soft delete/restore.
type SessionStore interface {
	CreateSession(ctx context.Context, input NewSession) (SessionRecord, error)
	RenameSession(ctx context.Context, id ids.SessionID, newTitle string) error
	ListSessions(ctx context.Context) ([]SessionRecord, error)
	GetSession(ctx context.Context, id ids.SessionID) (SessionRecord, error)
	SoftDeleteSession(ctx context.Context, id ids.SessionID) error
	RestoreSession(ctx context.Context, id ids.SessionID) error
}

// MessageStore manages messages within a session's active branch,
// including copy-on-write forking.
type MessageStore interface {
	AppendMessage(ctx context.Context, sessionID ids.SessionID, input NewMessage) (MessageRecord, error)
	ListMessages(ctx context.Context, sessionID ids.SessionID) ([]MessageRecord, error)
	GetMessage(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID) (MessageRecord, error)
	UpdateMessage(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID, patch MessagePatch) (MessageRecord, error)
	SoftDeleteMessage(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID) error
	ForkFromHistory(ctx context.Context, sessionID ids.SessionID, pivotMessageID ids.MessageID) (ForkOutcome, error)
}

// MediaStore manages media references attached to messages.
type MediaStore interface {
	AttachMedia(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID, input NewMediaRef) (MediaRefRecord, error)
	ListMedia(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID) ([]MediaRefRecord, error)
	SoftDeleteMedia(ctx context.Context, sessionID ids.SessionID, mediaID ids.MediaRefID) error
}

// AgentEventStore manages the append-only agent event stream.
type AgentEventStore interface {
	AppendEvent(ctx context.Context, sessionID ids.SessionID, input NewAgentEvent) (AgentEventRecord, error)
	ListEvents(ctx context.Context, sessionID ids.SessionID, messageID *ids.MessageID) ([]AgentEventRecord, error)
}

// Storage is the sole public surface collaborators use: it composes the
// four capability stores over one SQLite handle.
type Storage struct {
	db *sql.DB
}

var (
	_ SessionStore    = (*Storage)(nil)
	_ MessageStore    = (*Storage)(nil)
	_ MediaStore      = (*Storage)(nil)
	_ AgentEventStore = (*Storage)(nil)
)

// Open bootstraps a SQLite database at dbPath (applying pragmas and
// migrations) and returns a ready Storage handle.
func Open(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := schema.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// FromDB wraps an already-open, already-migrated database handle. Used by
// the QA harness, which needs to inspect pragmas on the same handle it
// hands to the store.
func FromDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for callers (bootstrap checks, the
// legacy importer) that need to open their own transaction against the
// same pool.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// WrapDBError classifies an error returned from an ExecContext or
// QueryRowContext call against the store's connection. A writer that
// couldn't get in under the busy_timeout pragma surfaces as
// Conflict{stage:"busy_timeout"}; anything else is an Invariant carrying
// op and the underlying driver error so callers can still Unwrap to it.
func WrapDBError(op string, err error) error {
	if schema.IsBusyOrLocked(err) {
		return storeerr.NewConflict("busy_timeout")
	}
	return storeerr.NewInvariant(op, err)
}
