package chatstore

import (
	"context"
	"testing"

	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

func TestAttachMediaAndList(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, NewSession{Title: "Media"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	msg, err := s.AppendMessage(ctx, session.ID, NewMessage{Role: RoleAssistant, Content: "here"})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	ref, err := s.AttachMedia(ctx, session.ID, msg.ID, NewMediaRef{
		URI: "file:///tmp/x.png", MimeType: "image/png", SizeBytes: 2048,
	})
	if err != nil {
		t.Fatalf("AttachMedia: %v", err)
	}

	list, err := s.ListMedia(ctx, session.ID, msg.ID)
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(list) != 1 || list[0].ID != ref.ID {
		t.Fatalf("expected exactly the attached ref, got %+v", list)
	}

	if err := s.SoftDeleteMedia(ctx, session.ID, ref.ID); err != nil {
		t.Fatalf("SoftDeleteMedia: %v", err)
	}
	list, err = s.ListMedia(ctx, session.ID, msg.ID)
	if err != nil {
		t.Fatalf("ListMedia after delete: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no live media after soft delete, got %d", len(list))
	}
}

func TestAttachMediaRejectsBlobLikeURIs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, NewSession{Title: "Blob guard"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	msg, err := s.AppendMessage(ctx, session.ID, NewMessage{Role: RoleAssistant, Content: "inline"})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	cases := []string{
		"data:image/png;base64,AAA",
		"https://example.com/x;base64,AAA",
	}
	for _, uri := range cases {
		_, err := s.AttachMedia(ctx, session.ID, msg.ID, NewMediaRef{URI: uri, MimeType: "image/png", SizeBytes: 1})
		if !storeerr.Is(err, storeerr.Conflict) {
			t.Errorf("uri %q: expected Conflict, got %v", uri, err)
		}
	}
}

func TestAttachMediaMissingMessageIsNotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, NewSession{Title: "No message"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_, err = s.AttachMedia(ctx, session.ID, ids.NewMessageID(), NewMediaRef{URI: "file:///a", MimeType: "text/plain", SizeBytes: 1})
	if !storeerr.Is(err, storeerr.NotFound) {
		t.Errorf("expected NotFound attaching to a missing message, got %v", err)
	}
}

func TestSoftDeleteMediaMissingIsNotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, NewSession{Title: "A"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := s.SoftDeleteMedia(ctx, session.ID, ids.NewMediaRefID()); !storeerr.Is(err, storeerr.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
