// Package chatstore implements the storage engine's four capability
// stores (session, message, media, agent event) and the Storage facade
// that composes them over a single SQLite database.
package chatstore

import (
	"time"

	"github.com/kestrelapp/chatstore/internal/ids"
)

// DefaultSessionTitle is used when a caller creates a session without an
// explicit title.
const DefaultSessionTitle = "New Conversation"

// MessageRole restricts a message to one of the three roles the schema's
// CHECK constraint allows.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// SessionRecord is a session as returned by the session store.
type SessionRecord struct {
	ID             ids.SessionID
	Title          string
	ActiveBranchID *ids.BranchID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSession is the input to CreateSession.
type NewSession struct {
	Title string
}

// SessionPatch describes a partial update to a session. Nil fields are
// left unchanged.
type SessionPatch struct {
	Title *string
}

// MessageRecord is a message as returned by the message store.
type MessageRecord struct {
	ID        ids.MessageID
	SessionID ids.SessionID
	BranchID  ids.BranchID
	Seq       int64
	Role      MessageRole
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMessage is the input to AppendMessage.
type NewMessage struct {
	Role    MessageRole
	Content string
}

// MessagePatch describes a partial update to a message. Only Content is
// mutable after creation.
type MessagePatch struct {
	Content *string
}

// MessageIDRemap records that a message's identity changed across a fork.
type MessageIDRemap struct {
	Old ids.MessageID
	New ids.MessageID
}

// ForkOutcome is the result of ForkFromHistory.
type ForkOutcome struct {
	NewBranchID     ids.BranchID
	MessageIDRemaps []MessageIDRemap
}

// MediaRefRecord is a media reference as returned by the media store.
type MediaRefRecord struct {
	ID         ids.MediaRefID
	SessionID  ids.SessionID
	MessageID  ids.MessageID
	URI        string
	MimeType   string
	SizeBytes  int64
	DurationMs *int64
	WidthPx    *int64
	HeightPx   *int64
	Sha256Hex  *string
	CreatedAt  time.Time
}

// NewMediaRef is the input to AttachMedia.
type NewMediaRef struct {
	URI        string
	MimeType   string
	SizeBytes  int64
	DurationMs *int64
	WidthPx    *int64
	HeightPx   *int64
	Sha256Hex  *string
}

// AgentEventRecord is an agent event as returned by the agent event store.
type AgentEventRecord struct {
	ID          ids.AgentEventID
	SessionID   ids.SessionID
	MessageID   *ids.MessageID
	EventType   string
	PayloadJSON string
	CreatedAt   time.Time
}

// NewAgentEvent is the input to AppendEvent.
type NewAgentEvent struct {
	MessageID   *ids.MessageID
	EventType   string
	PayloadJSON string
}
