// Package importer implements the one-shot legacy conversation importer:
// it reads the pre-SQLite tab-separated session file and loads it into a
// freshly bootstrapped database, idempotently.
package importer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kestrelapp/chatstore/internal/chatstore"
	"github.com/kestrelapp/chatstore/internal/ids"
	"github.com/kestrelapp/chatstore/internal/storeerr"
)

// Warning describes a legacy row that could not be parsed. The row is
// skipped; the import continues.
type Warning struct {
	LineNumber int
	Reason     string
}

// Outcome summarizes an import run.
type Outcome struct {
	Imported   int
	Skipped    int
	Warnings   []Warning
	Idempotent bool
}

type parsedRow struct {
	legacyID      string
	updatedAtUnix int64
	title         string
}

// Import reads path (a legacy conversations.tsv) and loads its rows into
// storage. If the database already has any sessions, the whole insert
// phase is skipped and Outcome.Idempotent is true; parse warnings are
// still reported either way.
func Import(ctx context.Context, storage *chatstore.Storage, path string) (Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return Outcome{}, storeerr.NewIo(path, err)
	}
	defer f.Close()

	var accepted []parsedRow
	var warnings []Warning

	scanner := bufio.NewScanner(f)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, reason := parseLegacyLine(line)
		if reason != "" {
			warnings = append(warnings, Warning{LineNumber: lineNumber, Reason: reason})
			continue
		}
		accepted = append(accepted, row)
	}
	if err := scanner.Err(); err != nil {
		return Outcome{}, storeerr.NewIo(path, err)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].updatedAtUnix != accepted[j].updatedAtUnix {
			return accepted[i].updatedAtUnix > accepted[j].updatedAtUnix
		}
		return accepted[i].legacyID > accepted[j].legacyID
	})

	db := storage.DB()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, storeerr.NewBootstrap("migration", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&existing); err != nil {
		return Outcome{}, chatstore.WrapDBError("import_legacy_conversations", err)
	}
	if existing != 0 {
		return Outcome{Imported: 0, Skipped: len(warnings), Warnings: warnings, Idempotent: true}, nil
	}

	for _, row := range accepted {
		sessionID := ids.NewSessionID()
		branchID := ids.NewBranchID()
		createdAtMs := row.updatedAtUnix * 1000

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, title, active_branch_id, created_at, updated_at) VALUES (?, ?, NULL, ?, ?)`,
			sessionID.String(), row.title, createdAtMs, createdAtMs,
		); err != nil {
			return Outcome{}, chatstore.WrapDBError("import_legacy_conversations", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO branches (id, session_id, parent_branch_id, created_at) VALUES (?, ?, NULL, ?)`,
			branchID.String(), sessionID.String(), createdAtMs,
		); err != nil {
			return Outcome{}, chatstore.WrapDBError("import_legacy_conversations", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET active_branch_id = ? WHERE id = ?`,
			branchID.String(), sessionID.String(),
		); err != nil {
			return Outcome{}, chatstore.WrapDBError("import_legacy_conversations", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Outcome{}, chatstore.WrapDBError("import_legacy_conversations", err)
	}

	return Outcome{Imported: len(accepted), Skipped: len(warnings), Warnings: warnings, Idempotent: false}, nil
}

// parseLegacyLine splits a raw line into its three tab-separated fields
// and decodes the title's backslash escapes. A non-empty reason string
// means the row is malformed and must be skipped.
func parseLegacyLine(line string) (parsedRow, string) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return parsedRow{}, "field_count"
	}

	legacyID := fields[0]
	updatedAtUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return parsedRow{}, "invalid_timestamp"
	}

	title, err := decodeLegacyTitle(fields[2])
	if err != nil {
		return parsedRow{}, "invalid_escape"
	}
	if strings.TrimSpace(title) == "" {
		title = chatstore.DefaultSessionTitle
	}

	return parsedRow{
		legacyID:      legacyID,
		updatedAtUnix: updatedAtUnix,
		title:         title,
	}, ""
}

// decodeLegacyTitle reverses the legacy exporter's escaping of newlines,
// tabs and backslashes within a title field.
func decodeLegacyTitle(raw string) (string, error) {
	var b strings.Builder
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '\\' {
			b.WriteRune(c)
			continue
		}
		i++
		if i >= len(runes) {
			return "", fmt.Errorf("dangling escape at end of title")
		}
		switch runes[i] {
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		case '\\':
			b.WriteRune('\\')
		default:
			return "", fmt.Errorf("unrecognized escape sequence: \\%c", runes[i])
		}
	}
	return b.String(), nil
}
