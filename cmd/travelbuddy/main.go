// Package main provides the CLI entry point for the Travel Buddy
// realtime client.
//
// The CLI wraps the realtime client core for debugging and operations:
// tailing a room's live events, sending messages, paging history and
// checking configuration health.
//
// # Basic Usage
//
// Tail a room's live events:
//
//	travelbuddy tail --config travelbuddy.yaml --room trip-42
//
// Send a message:
//
//	travelbuddy send --room trip-42 "anyone up for tapas?"
//
// Check configuration and credentials:
//
//	travelbuddy doctor
//
// # Environment Variables
//
//   - TRAVELBUDDY_CONFIG: Path to configuration file (default: travelbuddy.yaml)
//   - TRAVELBUDDY_TOKEN: Bearer token for the broker and REST backend
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "travelbuddy",
		Short: "Travel Buddy - realtime chat client",
		Long: `Travel Buddy realtime client CLI.

Connects to the chat broker over websocket, subscribes room topics and
exposes the live message, presence and poll streams for debugging.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildTailCmd(),
		buildSendCmd(),
		buildHistoryCmd(),
		buildDoctorCmd(),
	)
	return rootCmd
}

// defaultConfigPath resolves the config file path from the environment.
func defaultConfigPath() string {
	if path := os.Getenv("TRAVELBUDDY_CONFIG"); path != "" {
		return path
	}
	return "travelbuddy.yaml"
}
