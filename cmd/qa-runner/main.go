// Command qa-runner exercises the storage engine's invariants scenario by
// scenario and reports the outcome as key=value stdout lines for CI.
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
	"github.com/kestrelapp/chatstore/internal/qaharness"
)

const ansiRed = "\x1b[31m"
const ansiReset = "\x1b[0m"

var (
	flagDB       string
	flagScenario string
)

var rootCmd = &cobra.Command{
	Use:   "qa-runner",
	Short: "Run storage engine QA scenarios",
	RunE:  runQA,
}

func init() {
	rootCmd.Flags().StringVar(&flagDB, "db", "", "path to the SQLite database (defaults to the app data dir)")
	rootCmd.Flags().StringVar(&flagScenario, "scenario", "all", "scenario name, or \"all\"")
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

func runQA(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dbPath := flagDB
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		dbPath = cfg.DatabasePath()
	}

	storage, err := chatstore.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer storage.Close()

	if err := qaharness.Run(ctx, storage, flagScenario, os.Stdout); err != nil {
		return fmt.Errorf("scenario %s failed: %w", flagScenario, err)
	}
	return nil
}
