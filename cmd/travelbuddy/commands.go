// commands.go contains the cobra command definitions and their flag
// configurations. Each builder creates a command and wires it to its
// handler in handlers.go.
package main

import (
	"github.com/spf13/cobra"
)

// buildTailCmd creates the "tail" command that streams a room's live
// events to stdout.
func buildTailCmd() *cobra.Command {
	var (
		configPath  string
		roomID      string
		userID      string
		metricsAddr string
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream a room's live events",
		Long: `Connect to the broker, join a room and print every message,
presence change, typing indicator and poll event as it arrives.

The connection reconnects automatically after transport loss and
replays the room subscriptions, so the stream survives broker restarts.`,
		Example: `  # Tail a room
  travelbuddy tail --room trip-42 --user u-alice

  # Tail with a Prometheus endpoint on :9300
  travelbuddy tail --room trip-42 --user u-alice --metrics :9300`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd.Context(), configPath, roomID, userID, metricsAddr, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVarP(&roomID, "room", "r", "", "Room identifier to tail (required)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Local user identifier (required)")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address (e.g. :9300)")
	cmd.Flags().BoolVar(&watch, "watch-config", false, "Reload the config file on change")
	cmd.MarkFlagRequired("room") //nolint:errcheck
	cmd.MarkFlagRequired("user") //nolint:errcheck
	return cmd
}

// buildSendCmd creates the "send" command that publishes one message.
func buildSendCmd() *cobra.Command {
	var (
		configPath string
		roomID     string
		userID     string
		peerID     string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a chat message",
		Args:  cobra.ExactArgs(1),
		Example: `  # Send to a room
  travelbuddy send --room trip-42 --user u-alice "anyone up for tapas?"

  # Send a private message
  travelbuddy send --peer u-bob --user u-alice "running late"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), configPath, roomID, peerID, userID, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVarP(&roomID, "room", "r", "", "Room identifier")
	cmd.Flags().StringVarP(&peerID, "peer", "p", "", "Peer user identifier for a private message")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Local user identifier (required)")
	cmd.MarkFlagRequired("user") //nolint:errcheck
	return cmd
}

// buildHistoryCmd creates the "history" command that pages older
// messages from the REST backend.
func buildHistoryCmd() *cobra.Command {
	var (
		configPath     string
		conversationID string
		pages          int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Page older messages from the REST backend",
		Long: `Fetch history pages for a conversation, oldest last, walking the
pagination cursor until the requested number of pages or the start of
the conversation is reached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), configPath, conversationID, pages)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation identifier (required)")
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to fetch")
	cmd.MarkFlagRequired("conversation") //nolint:errcheck
	return cmd
}

// buildDoctorCmd creates the "doctor" command that checks the local
// setup.
func buildDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and credentials",
		Long: `Run local health checks: the config file parses and validates, the
bearer token is present and not expired, and the endpoints are well
formed. Exits non-zero when a check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	return cmd
}
