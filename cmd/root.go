// Package cmd provides the helpdesk CLI commands.
//
// Commands:
//   - serve: HTTP API server for the support assistant
//   - ask: one-shot question against the assistant pipeline
//   - ingest: scrape support pages and index them into the knowledge store
//   - version: version information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "helpdesk",
	Short: "Helpdesk - customer support assistant",
	Long: `Helpdesk is a retrieval-augmented customer support assistant.

It answers support questions grounded in indexed documentation, screens
requests through input guardrails, and reports a confidence score with
every answer.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	initLogger()
	return rootCmd.Execute()
}

// initLogger configures the default logger. DEBUG enables debug level.
// Logs go to stderr so command output on stdout stays clean.
func initLogger() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// checkRequiredEnv verifies that required environment variables are set.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")

		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}
