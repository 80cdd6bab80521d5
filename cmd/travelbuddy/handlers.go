// handlers.go contains the command implementations: wiring the
// realtime client core to the terminal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xhist/travel-buddy-client-sub000/internal/auth"
	"github.com/xhist/travel-buddy-client-sub000/internal/config"
	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/history"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
	"github.com/xhist/travel-buddy-client-sub000/pkg/realtime"
)

// connectTimeout bounds how long send/tail wait for the first
// successful broker handshake before giving up.
const connectTimeout = 30 * time.Second

// loadSetup loads the config file and the bearer credential.
func loadSetup(configPath string) (*config.Config, *auth.Credential, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	token := os.Getenv(cfg.Auth.TokenEnv)
	if token == "" {
		return nil, nil, fmt.Errorf("bearer token is required: set %s", cfg.Auth.TokenEnv)
	}
	cred, err := auth.NewCredential(token)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cred, nil
}

// waitConnected blocks until the client reports connected or the
// context / timeout expires.
func waitConnected(ctx context.Context, client *realtime.Client) error {
	deadline := time.Now().Add(connectTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if client.Status() == models.StatusConnected {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("broker connection timed out after %s", connectTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runTail streams a room's live events to stdout until interrupted.
func runTail(ctx context.Context, configPath, roomID, userID, metricsAddr string, watch bool) error {
	cfg, cred, err := loadSetup(configPath)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "addr", metricsAddr, "error", err)
			}
		}()
		defer server.Close()
	}

	if watch {
		watcher, err := config.NewWatcher(configPath, cfg, logger.Slog(), func(next *config.Config) {
			logger.Info("config reloaded; connection settings apply on next start")
		})
		if err != nil {
			return err
		}
		go watcher.Run(ctx)
	}

	printed := 0
	var client *realtime.Client
	client, err = realtime.NewClient(cfg, cred, userID,
		realtime.WithLogger(logger),
		realtime.WithMetrics(observability.NewMetrics()),
		realtime.WithUpdateFunc(func(conversationID string) {
			if conversationID != roomID {
				return
			}
			// The hook runs on the connection goroutine; printing here
			// is fine for a debug tail.
			printed = printRoomState(client, roomID, printed)
		}),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := waitConnected(ctx, client); err != nil {
		return err
	}
	if _, err := client.JoinRoom(roomID); err != nil {
		return err
	}
	fmt.Printf("tailing room %s as %s (ctrl-c to stop)\n", roomID, userID)

	<-ctx.Done()
	fmt.Println("\nleaving room")
	client.LeaveRoom(roomID)
	return nil
}

// printRoomState prints messages newer than the printed watermark plus
// the current typing line. Returns the new watermark.
func printRoomState(client *realtime.Client, roomID string, printed int) int {
	conv, ok := client.Conversation(roomID)
	if !ok {
		return printed
	}
	view := conv.Store.OrderedView()
	for _, msg := range view[min(printed, len(view)):] {
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format(time.RFC3339), msg.SenderID, msg.Content)
	}
	if typing := conv.Presence.TypingUsers(); len(typing) > 0 {
		fmt.Printf("(typing: %s)\n", strings.Join(typing, ", "))
	}
	return len(view)
}

// runSend connects, delivers one message and exits.
func runSend(ctx context.Context, configPath, roomID, peerID, userID, content string) error {
	if (roomID == "") == (peerID == "") {
		return fmt.Errorf("exactly one of --room or --peer is required")
	}
	cfg, cred, err := loadSetup(configPath)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	client, err := realtime.NewClient(cfg, cred, userID, realtime.WithLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := waitConnected(ctx, client); err != nil {
		return err
	}

	var msg models.Message
	if roomID != "" {
		if _, err := client.JoinRoom(roomID); err != nil {
			return err
		}
		msg, err = client.SendRoomMessage(roomID, content)
	} else {
		if _, err := client.OpenPrivate(peerID); err != nil {
			return err
		}
		msg, err = client.SendPrivateMessage(peerID, content)
	}
	if err != nil {
		return err
	}
	fmt.Printf("sent %s to %s\n", msg.ID, msg.ConversationID)
	return nil
}

// runHistory pages older messages without touching the broker.
func runHistory(ctx context.Context, configPath, conversationID string, pages int) error {
	cfg, cred, err := loadSetup(configPath)
	if err != nil {
		return err
	}
	if cfg.History.BaseURL == "" {
		return fmt.Errorf("history.base_url is not configured")
	}
	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	fetcher := history.NewFetcher(cfg.History.BaseURL, cred,
		history.WithPageSize(cfg.History.PageSize),
		history.WithRetries(cfg.History.FetchRetries),
		history.WithHTTPClientTimeout(cfg.FetchTimeout()),
		history.WithFetcherLogger(logger),
	)
	pager := history.NewPager(fetcher, conversationID)

	total := 0
	for i := 0; i < pages && !pager.Exhausted(); i++ {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, msg := range page {
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format(time.RFC3339), msg.SenderID, msg.Content)
		}
		total += len(page)
	}
	fmt.Printf("fetched %d messages", total)
	if pager.Exhausted() {
		fmt.Print(" (start of conversation)")
	}
	fmt.Println()
	return nil
}

// runDoctor checks the local setup and reports each result.
func runDoctor(configPath string) error {
	failed := false
	check := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("✗ %s: %v\n", name, err)
			return
		}
		fmt.Printf("✓ %s\n", name)
	}

	cfg, err := config.Load(configPath)
	check("config file", err)
	if err != nil {
		return fmt.Errorf("doctor found problems")
	}

	token := os.Getenv(cfg.Auth.TokenEnv)
	if token == "" {
		check("bearer token", fmt.Errorf("%s is not set", cfg.Auth.TokenEnv))
	} else {
		cred, err := auth.NewCredential(token)
		check("bearer token", err)
		if err == nil {
			if expiry, ok := cred.ExpiresAt(); ok {
				switch {
				case time.Now().After(expiry):
					check("token expiry", fmt.Errorf("token expired at %s", expiry.Format(time.RFC3339)))
				case cred.ExpiresWithin(time.Hour):
					fmt.Printf("! token expires soon: %s\n", expiry.Format(time.RFC3339))
				default:
					check("token expiry", nil)
				}
			}
		}
	}

	check("broker endpoint", validateEndpoint(cfg.Broker.Endpoint))
	if cfg.History.BaseURL == "" {
		fmt.Println("! history backend not configured; pagination disabled")
	}

	if failed {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("all checks passed")
	return nil
}

func validateEndpoint(endpoint string) error {
	if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
		return fmt.Errorf("%q is not a websocket URL", endpoint)
	}
	return nil
}
