package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("broker:\n  endpoint: wss://chat.example.com/ws\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Broker.ReconnectDelayMs != 5000 {
		t.Errorf("ReconnectDelayMs = %d, want 5000", cfg.Broker.ReconnectDelayMs)
	}
	if cfg.Broker.HeartbeatIntervalMs != 4000 {
		t.Errorf("HeartbeatIntervalMs = %d, want 4000", cfg.Broker.HeartbeatIntervalMs)
	}
	if cfg.History.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.History.PageSize)
	}
	if cfg.History.FetchTimeoutMs != 10000 {
		t.Errorf("FetchTimeoutMs = %d, want 10000", cfg.History.FetchTimeoutMs)
	}
	if cfg.Typing.DebounceMs != 300 {
		t.Errorf("DebounceMs = %d, want 300", cfg.Typing.DebounceMs)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
	if cfg.ReconnectDelay() != 5*time.Second {
		t.Errorf("ReconnectDelay() = %v, want 5s", cfg.ReconnectDelay())
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BROKER_HOST", "chat.example.com")
	cfg, err := Parse([]byte("broker:\n  endpoint: wss://${TEST_BROKER_HOST}/ws\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Broker.Endpoint != "wss://chat.example.com/ws" {
		t.Errorf("Endpoint = %q", cfg.Broker.Endpoint)
	}
}

func TestParse_MissingEndpoint(t *testing.T) {
	_, err := Parse([]byte("logging:\n  level: debug\n"))
	if err == nil || !strings.Contains(err.Error(), "broker.endpoint") {
		t.Fatalf("err = %v, want broker.endpoint error", err)
	}
}

func TestParse_RejectsNonWebsocketEndpoint(t *testing.T) {
	_, err := Parse([]byte("broker:\n  endpoint: https://chat.example.com/ws\n"))
	if err == nil {
		t.Fatal("expected error for https endpoint")
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("broker:\n  endpoint: wss://x/ws\n  retry_forever: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParse_InvalidLogLevel(t *testing.T) {
	_, err := Parse([]byte("broker:\n  endpoint: wss://x/ws\nlogging:\n  level: loud\n"))
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}
