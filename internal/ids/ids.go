// Package ids defines the five opaque identifier types the storage engine
// hands out: SessionID, BranchID, MessageID, MediaRefID and AgentEventID.
// Each wraps a UUIDv7 value so identifiers sort in creation order; the
// types are structurally identical but nominally distinct, so a MessageID
// cannot be passed where a SessionID is expected.
package ids

import (
	"github.com/google/uuid"

	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// SessionID identifies a conversation session.
type SessionID struct{ uuid.UUID }

// BranchID identifies a branch within a session.
type BranchID struct{ uuid.UUID }

// MessageID identifies a message within a branch.
type MessageID struct{ uuid.UUID }

// MediaRefID identifies a media reference attached to a message.
type MediaRefID struct{ uuid.UUID }

// AgentEventID identifies an agent event attached to a session.
type AgentEventID struct{ uuid.UUID }

// NewSessionID generates a fresh, time-ordered session id.
func NewSessionID() SessionID { return SessionID{mustV7()} }

// NewBranchID generates a fresh, time-ordered branch id.
func NewBranchID() BranchID { return BranchID{mustV7()} }

// NewMessageID generates a fresh, time-ordered message id.
func NewMessageID() MessageID { return MessageID{mustV7()} }

// NewMediaRefID generates a fresh, time-ordered media reference id.
func NewMediaRefID() MediaRefID { return MediaRefID{mustV7()} }

// NewAgentEventID generates a fresh, time-ordered agent event id.
func NewAgentEventID() AgentEventID { return AgentEventID{mustV7()} }

func mustV7() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// entropy source failure; the process cannot make progress.
		panic("ids: failed to generate uuidv7: " + err.Error())
	}
	return id
}

// ParseSessionID parses the textual form of a session id.
func ParseSessionID(raw string) (SessionID, error) {
	u, err := parse("session-id", raw)
	return SessionID{u}, err
}

// ParseBranchID parses the textual form of a branch id.
func ParseBranchID(raw string) (BranchID, error) {
	u, err := parse("branch-id", raw)
	return BranchID{u}, err
}

// ParseMessageID parses the textual form of a message id.
func ParseMessageID(raw string) (MessageID, error) {
	u, err := parse("message-id", raw)
	return MessageID{u}, err
}

// ParseMediaRefID parses the textual form of a media reference id.
func ParseMediaRefID(raw string) (MediaRefID, error) {
	u, err := parse("media-ref-id", raw)
	return MediaRefID{u}, err
}

// ParseAgentEventID parses the textual form of an agent event id.
func ParseAgentEventID(raw string) (AgentEventID, error) {
	u, err := parse("agent-event-id", raw)
	return AgentEventID{u}, err
}

func parse(kind, raw string) (uuid.UUID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, storeerr.NewInvalidID(kind, raw, err)
	}
	return u, nil
}

func (id SessionID) String() string     { return id.UUID.String() }
func (id BranchID) String() string      { return id.UUID.String() }
func (id MessageID) String() string     { return id.UUID.String() }
func (id MediaRefID) String() string    { return id.UUID.String() }
func (id AgentEventID) String() string  { return id.UUID.String() }

func (id SessionID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id BranchID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id MessageID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id MediaRefID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id AgentEventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SessionID) UnmarshalText(text []byte) error {
	parsed, err := ParseSessionID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BranchID) UnmarshalText(text []byte) error {
	parsed, err := ParseBranchID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MessageID) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MediaRefID) UnmarshalText(text []byte) error {
	parsed, err := ParseMediaRefID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AgentEventID) UnmarshalText(text []byte) error {
	parsed, err := ParseAgentEventID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
