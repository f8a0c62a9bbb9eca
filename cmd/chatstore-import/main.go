// Command chatstore-import loads a legacy tab-separated conversations file
// into a chatstore database, once, idempotently.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kestrelapp/chatstore/internal/chatstore"
	"github.com/kestrelapp/chatstore/internal/config"
	"github.com/kestrelapp/chatstore/internal/importer"
)

const ansiRed = "\x1b[31m"
const ansiReset = "\x1b[0m"

var (
	flagDB  string
	flagTSV string
)

var rootCmd = &cobra.Command{
	Use:   "chatstore-import",
	Short: "Import a legacy conversations.tsv file into chatstore",
	RunE:  runImport,
}

func init() {
	rootCmd.Flags().StringVar(&flagDB, "db", "", "path to the SQLite database (defaults to the app data dir)")
	rootCmd.Flags().StringVar(&flagTSV, "tsv", "", "path to the legacy conversations.tsv file (defaults to the app data dir)")
}

func main() {
	if err := run(); err != nil {
		printCLIError(err)
		os.Exit(1)
	}
}

func printCLIError(err error) {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "%sError:%s %v\n", ansiRed, ansiReset, err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dbPath := flagDB
	if dbPath == "" {
		dbPath = cfg.DatabasePath()
	}
	tsvPath := flagTSV
	if tsvPath == "" {
		tsvPath = cfg.LegacyImportPath()
	}

	storage, err := chatstore.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer storage.Close()

	outcome, err := importer.Import(ctx, storage, tsvPath)
	if err != nil {
		return fmt.Errorf("importing %s: %w", tsvPath, err)
	}

	fmt.Printf("imported=%d\n", outcome.Imported)
	fmt.Printf("skipped=%d\n", outcome.Skipped)
	for _, w := range outcome.Warnings {
		fmt.Printf("warning line=%d reason=%s\n", w.LineNumber, w.Reason)
	}
	if outcome.Idempotent {
		fmt.Println("outcome=idempotent")
	} else {
		fmt.Println("outcome=imported")
	}
	return nil
}
