package qaharness

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
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

func TestEachScenarioSucceedsInIsolation(t *testing.T) {
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			s := newTestStorage(t)
			var out bytes.Buffer
			if err := Run(context.Background(), s, name, &out); err != nil {
				t.Fatalf("scenario %s failed: %v\noutput so far:\n%s", name, err, out.String())
			}
			if !strings.Contains(out.String(), name+"=true") {
				t.Errorf("expected output to contain %s=true, got:\n%s", name, out.String())
			}
		})
	}
}

func TestAllRunsEveryScenarioAndReportsSuccess(t *testing.T) {
	s := newTestStorage(t)
	var out bytes.Buffer
	if err := Run(context.Background(), s, "all", &out); err != nil {
		t.Fatalf("all failed: %v\noutput so far:\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "all_passed=true") {
		t.Errorf("expected all_passed=true in output, got:\n%s", out.String())
	}
	for _, name := range Names {
		if !strings.Contains(out.String(), name+"=true") {
			t.Errorf("expected %s=true in the combined output", name)
		}
	}
}

func TestUnknownScenarioIsAnError(t *testing.T) {
	s := newTestStorage(t)
	var out bytes.Buffer
	if err := Run(context.Background(), s, "does_not_exist", &out); err == nil {
		t.Fatal("expected an error for an unknown scenario name")
	}
}
