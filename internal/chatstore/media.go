package chatstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// AttachMedia records a media reference against a live message in the
// same session. Blob-like URIs are rejected: media payloads live outside
// the engine.
func (s *Storage) AttachMedia(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID, input NewMediaRef) (MediaRefRecord, error) {
	if isBlobLikeURI(input.URI) {
		return MediaRefRecord{}, storeerr.NewConflict("media_uri_policy")
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
		sessionID.String(), messageID.String(),
	).Scan(&count)
	if err != nil {
		return MediaRefRecord{}, WrapDBError("attach_media", err)
	}
	if count == 0 {
		return MediaRefRecord{}, storeerr.NewNotFound("message", messageID.String())
	}

	id := ids.NewMediaRefID()
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO media_refs (id, session_id, message_id, uri, mime_type, size_bytes, duration_ms, width_px, height_px, sha256_hex, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), sessionID.String(), messageID.String(), input.URI, input.MimeType, input.SizeBytes,
		input.DurationMs, input.WidthPx, input.HeightPx, input.Sha256Hex, now,
	)
	if err != nil {
		return MediaRefRecord{}, WrapDBError("attach_media", err)
	}

	return MediaRefRecord{
		ID:         id,
		SessionID:  sessionID,
		MessageID:  messageID,
		URI:        input.URI,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
		DurationMs: input.DurationMs,
		WidthPx:    input.WidthPx,
		HeightPx:   input.HeightPx,
		Sha256Hex:  input.Sha256Hex,
		CreatedAt:  time.UnixMilli(now),
	}, nil
}

// ListMedia returns live media references attached to a message, oldest
// first.
func (s *Storage) ListMedia(ctx context.Context, sessionID ids.SessionID, messageID ids.MessageID) ([]MediaRefRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uri, mime_type, size_bytes, duration_ms, width_px, height_px, sha256_hex, created_at
		 FROM media_refs WHERE session_id = ? AND message_id = ? AND deleted_at IS NULL
		 ORDER BY created_at ASC, id ASC`,
		sessionID.String(), messageID.String(),
	)
	if err != nil {
		return nil, WrapDBError("list_media", err)
	}
	defer rows.Close()

	var out []MediaRefRecord
	for rows.Next() {
		var (
			idText, uri, mimeType         string
			sizeBytes, createdAtMs        int64
			durationMs, widthPx, heightPx sql.NullInt64
			sha256Hex                     sql.NullString
		)
		if err := rows.Scan(&idText, &uri, &mimeType, &sizeBytes,
			&durationMs, &widthPx, &heightPx, &sha256Hex, &createdAtMs); err != nil {
			return nil, WrapDBError("list_media", err)
		}
		mediaID, err := ids.ParseMediaRefID(idText)
		if err != nil {
			return nil, err
		}
		rec := MediaRefRecord{
			ID:        mediaID,
			SessionID: sessionID,
			MessageID: messageID,
			URI:       uri,
			MimeType:  mimeType,
			SizeBytes: sizeBytes,
			CreatedAt: time.UnixMilli(createdAtMs),
		}
		if durationMs.Valid {
			rec.DurationMs = &durationMs.Int64
		}
		if widthPx.Valid {
			rec.WidthPx = &widthPx.Int64
		}
		if heightPx.Valid {
			rec.HeightPx = &heightPx.Int64
		}
		if sha256Hex.Valid {
			rec.Sha256Hex = &sha256Hex.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SoftDeleteMedia marks a live media reference deleted, scoped by session.
func (s *Storage) SoftDeleteMedia(ctx context.Context, sessionID ids.SessionID, mediaID ids.MediaRefID) error {
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE media_refs SET deleted_at = ? WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
		now, sessionID.String(), mediaID.String(),
	)
	if err != nil {
		return WrapDBError("soft_delete_media", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storeerr.NewNotFound("media_ref", mediaID.String())
	}
	return nil
}

func isBlobLikeURI(uri string) bool {
	return strings.HasPrefix(uri, "data:") || strings.Contains(uri, ";base64,")
}
