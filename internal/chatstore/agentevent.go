package chatstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// AppendEvent records an agent event against a session, optionally
// attached to a live message in that same session. The payload must be
// well-formed JSON; agent events are append-only.
func (s *Storage) AppendEvent(ctx context.Context, sessionID ids.SessionID, input NewAgentEvent) (AgentEventRecord, error) {
	var valid int
	if err := s.db.QueryRowContext(ctx, `SELECT json_valid(?)`, input.PayloadJSON).Scan(&valid); err != nil {
		return AgentEventRecord{}, WrapDBError("append_event", err)
	}
	if valid == 0 {
		return AgentEventRecord{}, storeerr.NewConflict("agent_event_payload")
	}

	if input.MessageID != nil {
		var count int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM messages WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
			sessionID.String(), input.MessageID.String(),
		).Scan(&count)
		if err != nil {
			return AgentEventRecord{}, WrapDBError("append_event", err)
		}
		if count == 0 {
			return AgentEventRecord{}, storeerr.NewNotFound("message", input.MessageID.String())
		}
	}

	id := ids.NewAgentEventID()
	now := time.Now().UnixMilli()
	var messageIDText sql.NullString
	if input.MessageID != nil {
		messageIDText = sql.NullString{String: input.MessageID.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_events (id, session_id, message_id, event_type, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), sessionID.String(), messageIDText, input.EventType, input.PayloadJSON, now,
	)
	if err != nil {
		return AgentEventRecord{}, WrapDBError("append_event", err)
	}

	return AgentEventRecord{
		ID:          id,
		SessionID:   sessionID,
		MessageID:   input.MessageID,
		EventType:   input.EventType,
		PayloadJSON: input.PayloadJSON,
		CreatedAt:   time.UnixMilli(now),
	}, nil
}

// ListEvents returns live agent events for a session, oldest first,
// optionally filtered to those attached to a single message.
func (s *Storage) ListEvents(ctx context.Context, sessionID ids.SessionID, messageID *ids.MessageID) ([]AgentEventRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if messageID != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, message_id, event_type, payload_json, created_at
			 FROM agent_events WHERE session_id = ? AND message_id = ? ORDER BY created_at ASC, id ASC`,
			sessionID.String(), messageID.String(),
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, message_id, event_type, payload_json, created_at
			 FROM agent_events WHERE session_id = ? ORDER BY created_at ASC, id ASC`,
			sessionID.String(),
		)
	}
	if err != nil {
		return nil, WrapDBError("list_events", err)
	}
	defer rows.Close()

	var out []AgentEventRecord
	for rows.Next() {
		var idText, eventType, payload string
		var messageIDText sql.NullString
		var createdAtMs int64
		if err := rows.Scan(&idText, &messageIDText, &eventType, &payload, &createdAtMs); err != nil {
			return nil, WrapDBError("list_events", err)
		}
		eventID, err := ids.ParseAgentEventID(idText)
		if err != nil {
			return nil, err
		}
		rec := AgentEventRecord{
			ID:          eventID,
			SessionID:   sessionID,
			EventType:   eventType,
			PayloadJSON: payload,
			CreatedAt:   time.UnixMilli(createdAtMs),
		}
		if messageIDText.Valid {
			mid, err := ids.ParseMessageID(messageIDText.String)
			if err != nil {
				return nil, err
			}
			rec.MessageID = &mid
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
