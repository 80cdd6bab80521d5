// Package config loads client configuration from YAML with
// environment variable expansion and optional hot reload.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root client configuration.
type Config struct {
	Broker  BrokerConfig  `yaml:"broker"`
	History HistoryConfig `yaml:"history"`
	Typing  TypingConfig  `yaml:"typing"`
	Logging LoggingConfig `yaml:"logging"`
	Auth    AuthConfig    `yaml:"auth"`
}

// BrokerConfig configures the websocket broker link.
type BrokerConfig struct {
	// Endpoint is the websocket URL of the broker, e.g. wss://host/ws.
	Endpoint string `yaml:"endpoint"`

	// ReconnectDelayMs is the delay between reconnect attempts.
	// Default: 5000.
	ReconnectDelayMs int `yaml:"reconnect_delay_ms"`

	// MaxReconnectAttempts caps reconnect attempts. 0 means unbounded.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`

	// ExponentialReconnect switches from the fixed delay to an
	// exponential policy capped at 30s.
	ExponentialReconnect bool `yaml:"exponential_reconnect"`

	// HeartbeatIntervalMs is the outgoing heartbeat interval.
	// Default: 4000.
	HeartbeatIntervalMs int `yaml:"heartbeat_interval_ms"`

	// WriteTimeoutMs bounds a single frame write. Default: 10000.
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
}

// HistoryConfig configures the REST pagination client.
type HistoryConfig struct {
	// BaseURL is the REST backend root, e.g. https://host/api.
	BaseURL string `yaml:"base_url"`

	// PageSize is the number of messages per history page. Default: 50.
	PageSize int `yaml:"page_size"`

	// FetchTimeoutMs bounds one history fetch. Default: 10000.
	FetchTimeoutMs int `yaml:"fetch_timeout_ms"`

	// FetchRetries is the number of retries on transient failures.
	// Default: 2.
	FetchRetries int `yaml:"fetch_retries"`
}

// TypingConfig configures the outbound typing signal.
type TypingConfig struct {
	// DebounceMs is the trailing-edge debounce window. Default: 300.
	DebounceMs int `yaml:"debounce_ms"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`

	// Format is json or text. Default: json.
	Format string `yaml:"format"`
}

// AuthConfig names where the bearer token comes from.
type AuthConfig struct {
	// TokenEnv is the environment variable holding the bearer token.
	// Default: TRAVELBUDDY_TOKEN.
	TokenEnv string `yaml:"token_env"`
}

// Default returns a configuration with all defaults applied and no
// endpoint set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero values with defaults.
func (c *Config) applyDefaults() {
	if c.Broker.ReconnectDelayMs <= 0 {
		c.Broker.ReconnectDelayMs = 5000
	}
	if c.Broker.HeartbeatIntervalMs <= 0 {
		c.Broker.HeartbeatIntervalMs = 4000
	}
	if c.Broker.WriteTimeoutMs <= 0 {
		c.Broker.WriteTimeoutMs = 10000
	}
	if c.History.PageSize <= 0 {
		c.History.PageSize = 50
	}
	if c.History.FetchTimeoutMs <= 0 {
		c.History.FetchTimeoutMs = 10000
	}
	if c.History.FetchRetries < 0 {
		c.History.FetchRetries = 0
	} else if c.History.FetchRetries == 0 {
		c.History.FetchRetries = 2
	}
	if c.Typing.DebounceMs <= 0 {
		c.Typing.DebounceMs = 300
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Auth.TokenEnv == "" {
		c.Auth.TokenEnv = "TRAVELBUDDY_TOKEN"
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Broker.Endpoint) == "" {
		return fmt.Errorf("broker.endpoint is required")
	}
	if !strings.HasPrefix(c.Broker.Endpoint, "ws://") && !strings.HasPrefix(c.Broker.Endpoint, "wss://") {
		return fmt.Errorf("broker.endpoint must be a ws:// or wss:// URL, got %q", c.Broker.Endpoint)
	}
	if c.History.BaseURL != "" && !strings.HasPrefix(c.History.BaseURL, "http://") && !strings.HasPrefix(c.History.BaseURL, "https://") {
		return fmt.Errorf("history.base_url must be an http(s) URL, got %q", c.History.BaseURL)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug|info|warn|error", c.Logging.Level)
	}
	return nil
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Broker.ReconnectDelayMs) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat interval as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Broker.HeartbeatIntervalMs) * time.Millisecond
}

// FetchTimeout returns the history fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.History.FetchTimeoutMs) * time.Millisecond
}

// TypingDebounce returns the typing debounce window as a duration.
func (c *Config) TypingDebounce() time.Duration {
	return time.Duration(c.Typing.DebounceMs) * time.Millisecond
}

// Load reads a YAML config file, expands ${ENV} references, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes with env expansion and defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
