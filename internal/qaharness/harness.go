// Package qaharness drives the storage engine through every invariant the
// spec names and reports the outcome as labelled key=value stdout lines,
// the way a CI job would consume it. Each scenario resets the domain
// tables before it runs, so scenarios are independent of run order except
// for "all", which runs the fixed list below in sequence.
package qaharness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kestrelapp/chatstore/internal/chatstore"
	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/importer"
	"github.com/kestrelapp/chatstore/internal/schema"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// Names lists every scenario "all" runs, in the order it runs them.
var Names = []string{
	"id_roundtrip",
	"id_invalid",
	"prep_noop",
	"schema_init",
	"fk_violation",
	"busy_timeout",
	"session_crud",
	"history_branch_fork",
	"cross_session_guard",
	"media_ref_roundtrip",
	"media_blob_guard",
	"agent_event_roundtrip",
	"migrate_tsv_fixture",
	"migrate_idempotent",
	"migrate_malformed_row",
}

type scenarioFunc func(ctx context.Context, storage *chatstore.Storage, out io.Writer) error

var scenarios = map[string]scenarioFunc{
	"id_roundtrip":          runIDRoundtrip,
	"id_invalid":            runIDInvalid,
	"prep_noop":             runPrepNoop,
	"schema_init":           runSchemaInit,
	"fk_violation":          runFKViolation,
	"busy_timeout":          runBusyTimeout,
	"session_crud":          runSessionCRUD,
	"history_branch_fork":   runHistoryBranchFork,
	"cross_session_guard":   runCrossSessionGuard,
	"media_ref_roundtrip":   runMediaRefRoundtrip,
	"media_blob_guard":      runMediaBlobGuard,
	"agent_event_roundtrip": runAgentEventRoundtrip,
	"migrate_tsv_fixture":   runMigrateTSVFixture,
	"migrate_idempotent":    runMigrateIdempotent,
	"migrate_malformed_row": runMigrateMalformedRow,
}

// Run executes a named scenario ("all" runs every scenario in Names) and
// writes its key=value lines to out. A non-nil error means the caller
// should exit non-zero.
func Run(ctx context.Context, storage *chatstore.Storage, name string, out io.Writer) error {
	if name == "all" {
		for _, n := range Names {
			if err := runOne(ctx, storage, n, out); err != nil {
				return fmt.Errorf("%s: %w", n, err)
			}
		}
		fmt.Fprintln(out, "all_passed=true")
		return nil
	}
	fn, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario: %s", name)
	}
	if err := reset(ctx, storage.DB()); err != nil {
		return err
	}
	if err := fn(ctx, storage, out); err != nil {
		return err
	}
	return nil
}

func runOne(ctx context.Context, storage *chatstore.Storage, name string, out io.Writer) error {
	fn := scenarios[name]
	if err := reset(ctx, storage.DB()); err != nil {
		return err
	}
	return fn(ctx, storage, out)
}

// reset clears every domain table so each scenario starts from an empty,
// already-migrated database. Deletion order respects the foreign keys.
func reset(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`UPDATE sessions SET active_branch_id = NULL`,
		`DELETE FROM agent_events`,
		`DELETE FROM media_refs`,
		`DELETE FROM messages`,
		`DELETE FROM branches`,
		`DELETE FROM sessions`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return chatstore.WrapDBError("qaharness_reset", err)
		}
	}
	return nil
}

func fail(stage string, err error) error {
	return fmt.Errorf("%s: %w", stage, err)
}

func runIDRoundtrip(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	sessionID := ids.NewSessionID()
	parsedSession, err := ids.ParseSessionID(sessionID.String())
	if err != nil || parsedSession.String() != sessionID.String() {
		return fail("id_roundtrip", fmt.Errorf("session id did not round-trip"))
	}

	branchID := ids.NewBranchID()
	if parsed, err := ids.ParseBranchID(branchID.String()); err != nil || parsed.String() != branchID.String() {
		return fail("id_roundtrip", fmt.Errorf("branch id did not round-trip"))
	}

	messageID := ids.NewMessageID()
	if parsed, err := ids.ParseMessageID(messageID.String()); err != nil || parsed.String() != messageID.String() {
		return fail("id_roundtrip", fmt.Errorf("message id did not round-trip"))
	}

	mediaID := ids.NewMediaRefID()
	if parsed, err := ids.ParseMediaRefID(mediaID.String()); err != nil || parsed.String() != mediaID.String() {
		return fail("id_roundtrip", fmt.Errorf("media ref id did not round-trip"))
	}

	eventID := ids.NewAgentEventID()
	if parsed, err := ids.ParseAgentEventID(eventID.String()); err != nil || parsed.String() != eventID.String() {
		return fail("id_roundtrip", fmt.Errorf("agent event id did not round-trip"))
	}

	fmt.Fprintln(out, "id_roundtrip=true")
	return nil
}

func runIDInvalid(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	_, err := ids.ParseSessionID("not-a-uuid")
	if err == nil {
		return fail("id_invalid", fmt.Errorf("expected parse failure"))
	}
	if !storeerr.Is(err, storeerr.InvalidId) {
		return fail("id_invalid", fmt.Errorf("expected InvalidId, got %v", err))
	}
	fmt.Fprintln(out, "id_invalid=true")
	return nil
}

func runPrepNoop(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	if storage == nil || storage.DB() == nil {
		return fail("prep_noop", fmt.Errorf("storage handle unavailable"))
	}
	fmt.Fprintln(out, "prep_noop=true")
	return nil
}

func runSchemaInit(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	db := storage.DB()

	var journalMode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&journalMode); err != nil {
		return fail("schema_init", err)
	}
	var foreignKeys int
	if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&foreignKeys); err != nil {
		return fail("schema_init", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		return fail("schema_init", fmt.Errorf("journal_mode = %s, want wal", journalMode))
	}
	if foreignKeys != 1 {
		return fail("schema_init", fmt.Errorf("foreign_keys = %d, want 1", foreignKeys))
	}

	var migrated int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&migrated); err != nil {
		return fail("schema_init", err)
	}
	if migrated == 0 {
		return fail("schema_init", fmt.Errorf("no migrations recorded"))
	}

	fmt.Fprintf(out, "journal_mode=%s\n", strings.ToLower(journalMode))
	fmt.Fprintf(out, "foreign_keys=%d\n", foreignKeys)
	fmt.Fprintln(out, "schema_init=true")
	return nil
}

func runFKViolation(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	db := storage.DB()
	_, err := db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, branch_id, seq, role, content, created_at, updated_at)
		 VALUES (?, ?, ?, 0, 'user', 'orphan', 0, 0)`,
		ids.NewMessageID().String(), ids.NewSessionID().String(), ids.NewBranchID().String(),
	)
	if err == nil {
		return fail("fk_violation", fmt.Errorf("expected foreign key rejection"))
	}
	if !schema.IsForeignKeyViolation(err) {
		return fail("fk_violation", fmt.Errorf("expected foreign key violation, got %v", err))
	}
	fmt.Fprintln(out, "fk_violation=true")
	return nil
}

// runBusyTimeout proves that lock contention surviving the busy_timeout
// pragma surfaces as Conflict{stage:"busy_timeout"}, not Invariant. It
// holds the write lock on storage's own connection (BEGIN IMMEDIATE fires
// as soon as a transaction opens, per the _txlock=immediate DSN param set
// in schema.Open) and opens a second connection to the same file with a
// 50ms busy_timeout so the contending BEGIN IMMEDIATE fails fast instead
// of waiting out the real 5s pragma.
func runBusyTimeout(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	dbPath, err := mainDatabaseFile(ctx, storage.DB())
	if err != nil {
		return fail("busy_timeout", err)
	}

	contender, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(50)&_txlock=immediate")
	if err != nil {
		return fail("busy_timeout", err)
	}
	defer contender.Close()
	contender.SetMaxOpenConns(1)

	holder, err := storage.DB().BeginTx(ctx, nil)
	if err != nil {
		return fail("busy_timeout", err)
	}
	defer holder.Rollback()

	contenderTx, err := contender.BeginTx(ctx, nil)
	if err == nil {
		contenderTx.Rollback()
		return fail("busy_timeout", fmt.Errorf("expected contending writer to be rejected while the lock is held"))
	}
	if !schema.IsBusyOrLocked(err) {
		return fail("busy_timeout", fmt.Errorf("expected a busy/locked driver error, got %v", err))
	}

	wrapped := chatstore.WrapDBError("busy_timeout_probe", err)
	var se *storeerr.Error
	if !errors.As(wrapped, &se) || se.Kind != storeerr.Conflict || se.Stage != "busy_timeout" {
		return fail("busy_timeout", fmt.Errorf("expected Conflict{stage:busy_timeout}, got %v", wrapped))
	}

	fmt.Fprintln(out, "busy_timeout=true")
	return nil
}

func mainDatabaseFile(ctx context.Context, db *sql.DB) (string, error) {
	rows, err := db.QueryContext(ctx, `PRAGMA database_list`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var seq int
		var name, file string
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return "", err
		}
		if name == "main" && file != "" {
			return file, nil
		}
	}
	return "", fmt.Errorf("main database has no backing file (in-memory databases can't be contended from a second connection)")
}

func runSessionCRUD(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	first, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "First"})
	if err != nil {
		return fail("session_crud", err)
	}
	second, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "Second"})
	if err != nil {
		return fail("session_crud", err)
	}
	created := 2

	sessions, err := storage.ListSessions(ctx)
	if err != nil {
		return fail("session_crud", err)
	}
	if len(sessions) != 2 || sessions[0].ID.String() != second.ID.String() || sessions[1].ID.String() != first.ID.String() {
		return fail("session_crud", fmt.Errorf("list order not newest-first"))
	}

	if err := storage.SoftDeleteSession(ctx, first.ID); err != nil {
		return fail("session_crud", err)
	}
	softDeleted := 1

	sessions, err = storage.ListSessions(ctx)
	if err != nil {
		return fail("session_crud", err)
	}
	if len(sessions) != 1 || sessions[0].ID.String() != second.ID.String() {
		return fail("session_crud", fmt.Errorf("soft-deleted session still listed"))
	}

	if err := storage.RestoreSession(ctx, first.ID); err != nil {
		return fail("session_crud", err)
	}
	restored := 1

	sessions, err = storage.ListSessions(ctx)
	if err != nil {
		return fail("session_crud", err)
	}
	if len(sessions) != 2 {
		return fail("session_crud", fmt.Errorf("restored session missing from list"))
	}

	touched := created + softDeleted + restored
	fmt.Fprintf(out, "# session_crud touched %s sessions across create/soft-delete/restore\n", humanize.Comma(int64(touched)))
	fmt.Fprintf(out, "created=%d\n", created)
	fmt.Fprintf(out, "soft_deleted=%d\n", softDeleted)
	fmt.Fprintf(out, "restored=%d\n", restored)
	fmt.Fprintln(out, "list_order_ok=true")
	fmt.Fprintln(out, "session_crud=true")
	return nil
}

func runHistoryBranchFork(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	session, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "Fork target"})
	if err != nil {
		return fail("history_branch_fork", err)
	}

	var pivot chatstore.MessageRecord
	for i, content := range []string{"a0", "a1", "a2"} {
		msg, err := storage.AppendMessage(ctx, session.ID, chatstore.NewMessage{Role: chatstore.RoleUser, Content: content})
		if err != nil {
			return fail("history_branch_fork", err)
		}
		if i == 1 {
			pivot = msg
		}
	}
	oldBranchID := pivot.BranchID

	outcome, err := storage.ForkFromHistory(ctx, session.ID, pivot.ID)
	if err != nil {
		return fail("history_branch_fork", err)
	}
	if len(outcome.MessageIDRemaps) != 2 {
		return fail("history_branch_fork", fmt.Errorf("expected 2 remaps, got %d", len(outcome.MessageIDRemaps)))
	}

	live, err := storage.ListMessages(ctx, session.ID)
	if err != nil {
		return fail("history_branch_fork", err)
	}
	if int64(len(live)) != pivot.Seq+1 {
		return fail("history_branch_fork", fmt.Errorf("active branch has %d live messages, want %d", len(live), pivot.Seq+1))
	}

	var oldBranchLive int
	err = storage.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ? AND branch_id = ? AND deleted_at IS NULL`,
		session.ID.String(), oldBranchID.String(),
	).Scan(&oldBranchLive)
	if err != nil {
		return fail("history_branch_fork", err)
	}
	if oldBranchLive != 0 {
		return fail("history_branch_fork", fmt.Errorf("old branch still has %d live messages", oldBranchLive))
	}

	fmt.Fprintln(out, "fork_created=true")
	fmt.Fprintf(out, "active_branch_visible_count=%d\n", len(live))
	fmt.Fprintln(out, "old_branch_visible_count=0")
	fmt.Fprintln(out, "history_branch_fork=true")
	return nil
}

func runCrossSessionGuard(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	sessionA, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "A"})
	if err != nil {
		return fail("cross_session_guard", err)
	}
	sessionB, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "B"})
	if err != nil {
		return fail("cross_session_guard", err)
	}
	msgA, err := storage.AppendMessage(ctx, sessionA.ID, chatstore.NewMessage{Role: chatstore.RoleUser, Content: "a0"})
	if err != nil {
		return fail("cross_session_guard", err)
	}

	if _, err := storage.GetMessage(ctx, sessionB.ID, msgA.ID); !storeerr.Is(err, storeerr.NotFound) {
		return fail("cross_session_guard", fmt.Errorf("expected NotFound reading foreign message, got %v", err))
	}

	newContent := "tampered"
	if _, err := storage.UpdateMessage(ctx, sessionB.ID, msgA.ID, chatstore.MessagePatch{Content: &newContent}); !storeerr.Is(err, storeerr.NotFound) {
		return fail("cross_session_guard", fmt.Errorf("expected NotFound updating foreign message, got %v", err))
	}

	if err := storage.SoftDeleteMessage(ctx, sessionB.ID, msgA.ID); !storeerr.Is(err, storeerr.NotFound) {
		return fail("cross_session_guard", fmt.Errorf("expected NotFound deleting foreign message, got %v", err))
	}

	fmt.Fprintln(out, "cross_session_guard=true")
	return nil
}

func runMediaRefRoundtrip(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	session, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "Media"})
	if err != nil {
		return fail("media_ref_roundtrip", err)
	}
	msg, err := storage.AppendMessage(ctx, session.ID, chatstore.NewMessage{Role: chatstore.RoleAssistant, Content: "here's a file"})
	if err != nil {
		return fail("media_ref_roundtrip", err)
	}

	ref, err := storage.AttachMedia(ctx, session.ID, msg.ID, chatstore.NewMediaRef{
		URI: "file:///tmp/x.png", MimeType: "image/png", SizeBytes: 1024,
	})
	if err != nil {
		return fail("media_ref_roundtrip", err)
	}

	list, err := storage.ListMedia(ctx, session.ID, msg.ID)
	if err != nil {
		return fail("media_ref_roundtrip", err)
	}
	if len(list) != 1 || list[0].ID.String() != ref.ID.String() {
		return fail("media_ref_roundtrip", fmt.Errorf("expected exactly the attached ref"))
	}

	if err := storage.SoftDeleteMedia(ctx, session.ID, ref.ID); err != nil {
		return fail("media_ref_roundtrip", err)
	}
	list, err = storage.ListMedia(ctx, session.ID, msg.ID)
	if err != nil {
		return fail("media_ref_roundtrip", err)
	}
	if len(list) != 0 {
		return fail("media_ref_roundtrip", fmt.Errorf("soft-deleted ref still listed"))
	}

	fmt.Fprintln(out, "media_ref_roundtrip=true")
	return nil
}

func runMediaBlobGuard(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	session, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "Blob guard"})
	if err != nil {
		return fail("media_blob_guard", err)
	}
	msg, err := storage.AppendMessage(ctx, session.ID, chatstore.NewMessage{Role: chatstore.RoleAssistant, Content: "inline"})
	if err != nil {
		return fail("media_blob_guard", err)
	}

	_, err = storage.AttachMedia(ctx, session.ID, msg.ID, chatstore.NewMediaRef{
		URI: "data:image/png;base64,AAA", MimeType: "image/png", SizeBytes: 3,
	})
	if !storeerr.Is(err, storeerr.Conflict) {
		return fail("media_blob_guard", fmt.Errorf("expected Conflict for blob-like uri, got %v", err))
	}

	fmt.Fprintln(out, "media_blob_guard=true")
	return nil
}

func runAgentEventRoundtrip(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	session, err := storage.CreateSession(ctx, chatstore.NewSession{Title: "Events"})
	if err != nil {
		return fail("agent_event_roundtrip", err)
	}
	msg, err := storage.AppendMessage(ctx, session.ID, chatstore.NewMessage{Role: chatstore.RoleAssistant, Content: "calling a tool"})
	if err != nil {
		return fail("agent_event_roundtrip", err)
	}

	msgID := msg.ID
	if _, err := storage.AppendEvent(ctx, session.ID, chatstore.NewAgentEvent{
		MessageID:   &msgID,
		EventType:   "tool_call",
		PayloadJSON: `{"kind":"tool_call","name":"search"}`,
	}); err != nil {
		return fail("agent_event_roundtrip", err)
	}

	if _, err := storage.AppendEvent(ctx, session.ID, chatstore.NewAgentEvent{
		EventType:   "invalid",
		PayloadJSON: "not json",
	}); !storeerr.Is(err, storeerr.Conflict) {
		return fail("agent_event_roundtrip", fmt.Errorf("expected Conflict for malformed JSON, got %v", err))
	}

	filtered, err := storage.ListEvents(ctx, session.ID, &msgID)
	if err != nil {
		return fail("agent_event_roundtrip", err)
	}
	if len(filtered) != 1 {
		return fail("agent_event_roundtrip", fmt.Errorf("expected 1 filtered event, got %d", len(filtered)))
	}

	all, err := storage.ListEvents(ctx, session.ID, nil)
	if err != nil {
		return fail("agent_event_roundtrip", err)
	}
	if len(all) != 1 {
		return fail("agent_event_roundtrip", fmt.Errorf("expected 1 session-wide event, got %d", len(all)))
	}

	fmt.Fprintln(out, "agent_event_roundtrip=true")
	return nil
}

const wellFormedFixture = "101\t1700000300\tThird Session\n" +
	"102\t1700000200\tSecond Session\n" +
	"103\t1700000100\tFirst Session\n"

func runMigrateTSVFixture(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	path, cleanup, err := writeFixture(wellFormedFixture)
	if err != nil {
		return fail("migrate_tsv_fixture", err)
	}
	defer cleanup()

	outcome, err := importer.Import(ctx, storage, path)
	if err != nil {
		return fail("migrate_tsv_fixture", err)
	}
	if outcome.Imported != 3 || outcome.Skipped != 0 || outcome.Idempotent {
		return fail("migrate_tsv_fixture", fmt.Errorf("unexpected outcome: %+v", outcome))
	}

	sessions, err := storage.ListSessions(ctx)
	if err != nil {
		return fail("migrate_tsv_fixture", err)
	}
	if len(sessions) != 3 || sessions[0].Title != "Third Session" || sessions[2].Title != "First Session" {
		return fail("migrate_tsv_fixture", fmt.Errorf("unexpected import order: %+v", sessions))
	}

	fmt.Fprintf(out, "imported=%d\n", outcome.Imported)
	fmt.Fprintf(out, "skipped=%d\n", outcome.Skipped)
	fmt.Fprintln(out, "outcome=imported")
	fmt.Fprintln(out, "migrate_tsv_fixture=true")
	return nil
}

func runMigrateIdempotent(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	path, cleanup, err := writeFixture(wellFormedFixture)
	if err != nil {
		return fail("migrate_idempotent", err)
	}
	defer cleanup()

	if _, err := importer.Import(ctx, storage, path); err != nil {
		return fail("migrate_idempotent", err)
	}

	second, err := importer.Import(ctx, storage, path)
	if err != nil {
		return fail("migrate_idempotent", err)
	}
	if !second.Idempotent || second.Imported != 0 {
		return fail("migrate_idempotent", fmt.Errorf("second run not idempotent: %+v", second))
	}

	sessions, err := storage.ListSessions(ctx)
	if err != nil {
		return fail("migrate_idempotent", err)
	}
	if len(sessions) != 3 {
		return fail("migrate_idempotent", fmt.Errorf("session count changed on re-import: %d", len(sessions)))
	}

	fmt.Fprintln(out, "outcome=idempotent")
	fmt.Fprintln(out, "migrate_idempotent=true")
	return nil
}

const malformedFixture = "201\t1700001000\tValid One\n" +
	"only-two-fields\t1700002000\n" +
	"202\tnot-a-timestamp\tBroken Timestamp\n" +
	"203\t1700003000\tDangling escape \\\n" +
	"204\t1700004000\t   \n"

func runMigrateMalformedRow(ctx context.Context, storage *chatstore.Storage, out io.Writer) error {
	path, cleanup, err := writeFixture(malformedFixture)
	if err != nil {
		return fail("migrate_malformed_row", err)
	}
	defer cleanup()

	outcome, err := importer.Import(ctx, storage, path)
	if err != nil {
		return fail("migrate_malformed_row", err)
	}
	if outcome.Imported != 2 || outcome.Skipped != 3 {
		return fail("migrate_malformed_row", fmt.Errorf("unexpected outcome: %+v", outcome))
	}
	for _, w := range outcome.Warnings {
		if w.LineNumber == 0 || w.Reason == "" {
			return fail("migrate_malformed_row", fmt.Errorf("warning missing line number or reason: %+v", w))
		}
	}

	sessions, err := storage.ListSessions(ctx)
	if err != nil {
		return fail("migrate_malformed_row", err)
	}
	defaultTitleApplied := false
	for _, s := range sessions {
		if s.Title == chatstore.DefaultSessionTitle {
			defaultTitleApplied = true
		}
	}
	if !defaultTitleApplied {
		return fail("migrate_malformed_row", fmt.Errorf("blank-title row did not fall back to default title"))
	}

	fmt.Fprintf(out, "imported=%d\n", outcome.Imported)
	fmt.Fprintf(out, "skipped=%d\n", outcome.Skipped)
	fmt.Fprintln(out, "default_title_applied=true")
	fmt.Fprintln(out, "migrate_malformed_row=true")
	return nil
}

func writeFixture(contents string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "chatstore-qa-fixture-*.tsv")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.WriteString(contents); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
