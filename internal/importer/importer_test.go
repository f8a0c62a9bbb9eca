package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelapp/chatstore/internal/chatstore"
)

func newTestStorage(t *testing.T) *chatstore.Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	s, err := chatstore.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.tsv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestImportWellFormedRowsInDescendingOrder(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	fixture := "1\t1700000100\tFirst\n" +
		"2\t1700000300\tThird\n" +
		"3\t1700000200\tSecond\n"
	path := writeFixture(t, fixture)

	outcome, err := Import(ctx, s, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if outcome.Imported != 3 || outcome.Skipped != 0 || outcome.Idempotent {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	want := []string{"Third", "Second", "First"}
	for i, title := range want {
		if sessions[i].Title != title {
			t.Errorf("session %d title = %q, want %q", i, sessions[i].Title, title)
		}
	}
}

func TestImportIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	path := writeFixture(t, "1\t1700000100\tOnly\n")

	if _, err := Import(ctx, s, path); err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := Import(ctx, s, path)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !second.Idempotent || second.Imported != 0 {
		t.Fatalf("expected idempotent no-op on second run, got %+v", second)
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("expected session count unchanged at 1, got %d", len(sessions))
	}
}

func TestImportSkipsMalformedRowsWithReasons(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	fixture := "1\t1700000100\tValid\n" +
		"only-two-fields\t1700000200\n" +
		"2\tnot-a-timestamp\tBroken\n" +
		"3\t1700000300\tDangling \\\n"
	path := writeFixture(t, fixture)

	outcome, err := Import(ctx, s, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if outcome.Imported != 1 {
		t.Errorf("expected 1 imported row, got %d", outcome.Imported)
	}
	if outcome.Skipped != 3 {
		t.Errorf("expected 3 skipped rows, got %d", outcome.Skipped)
	}

	reasons := map[string]bool{}
	for _, w := range outcome.Warnings {
		if w.LineNumber == 0 {
			t.Errorf("warning missing line number: %+v", w)
		}
		reasons[w.Reason] = true
	}
	for _, want := range []string{"field_count", "invalid_timestamp", "invalid_escape"} {
		if !reasons[want] {
			t.Errorf("expected a warning with reason %q, got %v", want, reasons)
		}
	}
}

func TestImportBlankTitleFallsBackToDefault(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	path := writeFixture(t, "1\t1700000100\t   \n")

	outcome, err := Import(ctx, s, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if outcome.Imported != 1 || outcome.Skipped != 0 {
		t.Fatalf("expected the blank-title row to be accepted, got %+v", outcome)
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Title != chatstore.DefaultSessionTitle {
		t.Errorf("expected default title fallback, got %+v", sessions)
	}
}

func TestImportSkipsEmptyLinesSilently(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	path := writeFixture(t, "1\t1700000100\tFirst\n\n\n2\t1700000200\tSecond\n")

	outcome, err := Import(ctx, s, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if outcome.Imported != 2 || outcome.Skipped != 0 {
		t.Errorf("expected empty lines to be silently skipped, got %+v", outcome)
	}
}

func TestDecodeLegacyTitleEscapes(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`plain`, `plain`, false},
		{`line\nbreak`, "line\nbreak", false},
		{`tab\there`, "tab\there", false},
		{`back\\slash`, `back\slash`, false},
		{`dangling\`, "", true},
		{`bad\qescape`, "", true},
	}
	for _, c := range cases {
		got, err := decodeLegacyTitle(c.raw)
		if c.wantErr {
			if err == nil {
				t.Errorf("decodeLegacyTitle(%q): expected error", c.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("decodeLegacyTitle(%q): unexpected error %v", c.raw, err)
			continue
		}
		if got != c.want {
			t.Errorf("decodeLegacyTitle(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}
