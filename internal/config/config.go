package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Defaults for values the server side also assumes.
const (
	DefaultServerURL        = "http://localhost:8080"
	DefaultReconnectBackoff = 3 * time.Second
	DefaultTypingIdle       = 2 * time.Second
)

// Config is the global ~/.termchat/config.toml, with TERMCHAT_*
// environment overrides applied on top.
type Config struct {
	ServerURL        string   `toml:"server_url" env:"TERMCHAT_SERVER_URL"`
	WebsocketURL     string   `toml:"websocket_url" env:"TERMCHAT_WEBSOCKET_URL"`
	DefaultProfile   string   `toml:"default_profile" env:"TERMCHAT_PROFILE"`
	ReconnectBackoff duration `toml:"reconnect_backoff"`
	TypingIdle       duration `toml:"typing_idle"`
}

// duration lets TOML carry values like "3s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load reads config from the given path and applies environment
// overrides. A missing file yields defaults, not an error; the first
// run has no config yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.WebsocketURL == "" {
		c.WebsocketURL = deriveWebsocketURL(c.ServerURL)
	}
	if c.ReconnectBackoff.Duration <= 0 {
		c.ReconnectBackoff.Duration = DefaultReconnectBackoff
	}
	if c.TypingIdle.Duration <= 0 {
		c.TypingIdle.Duration = DefaultTypingIdle
	}
}

// deriveWebsocketURL maps the REST base URL to the /ws endpoint.
func deriveWebsocketURL(serverURL string) string {
	switch {
	case len(serverURL) > 8 && serverURL[:8] == "https://":
		return "wss://" + serverURL[8:] + "/ws"
	case len(serverURL) > 7 && serverURL[:7] == "http://":
		return "ws://" + serverURL[7:] + "/ws"
	default:
		return serverURL + "/ws"
	}
}

// Backoff returns the reconnect backoff as a plain duration.
func (c *Config) Backoff() time.Duration { return c.ReconnectBackoff.Duration }

// Idle returns the typing idle window as a plain duration.
func (c *Config) Idle() time.Duration { return c.TypingIdle.Duration }

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
