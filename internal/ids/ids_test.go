package ids

import "testing"

func TestRoundTrip(t *testing.T) {
	sessionID := NewSessionID()
	parsed, err := ParseSessionID(sessionID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.String() != sessionID.String() {
		t.Errorf("got %s, want %s", parsed.String(), sessionID.String())
	}

	branchID := NewBranchID()
	if parsed, err := ParseBranchID(branchID.String()); err != nil || parsed.String() != branchID.String() {
		t.Errorf("branch id round-trip failed: %v", err)
	}

	messageID := NewMessageID()
	if parsed, err := ParseMessageID(messageID.String()); err != nil || parsed.String() != messageID.String() {
		t.Errorf("message id round-trip failed: %v", err)
	}

	mediaID := NewMediaRefID()
	if parsed, err := ParseMediaRefID(mediaID.String()); err != nil || parsed.String() != mediaID.String() {
		t.Errorf("media ref id round-trip failed: %v", err)
	}

	eventID := NewAgentEventID()
	if parsed, err := ParseAgentEventID(eventID.String()); err != nil || parsed.String() != eventID.String() {
		t.Errorf("agent event id round-trip failed: %v", err)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := ParseSessionID("not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
}

func TestNewIDsAreDistinct(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	if a.String() == b.String() {
		t.Fatal("expected two freshly generated ids to differ")
	}
}

func TestOrderingMatchesCreationOrder(t *testing.T) {
	first := NewMessageID()
	second := NewMessageID()
	if !(first.String() < second.String()) {
		t.Errorf("expected lexicographic order to match creation order: %s should sort before %s", first.String(), second.String())
	}
}
