package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.wppbridge/config.toml.
type Config struct {
	DefaultInstance string            `toml:"default_instance"`
	Gateway         GatewayConfig     `toml:"gateway"`
	Relay           RelayConfig       `toml:"relay"`
	Inbox           InboxConfig       `toml:"inbox"`
	Status          StatusConfig      `toml:"status"`
	RelayServer     RelayServerConfig `toml:"relay_server"`
}

// GatewayConfig addresses the upstream gateway directly.
type GatewayConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// RelayConfig addresses the server-side relay used from non-local runtimes.
type RelayConfig struct {
	URL         string `toml:"url"`
	Function    string `toml:"function"`
	Token       string `toml:"token"`
	RuntimeHost string `toml:"runtime_host"`
}

type InboxConfig struct {
	MessageWindow int `toml:"message_window"`
}

type StatusConfig struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// RelayServerConfig configures wpprelay. Upstream credentials come from Gateway.
type RelayServerConfig struct {
	Listen    string `toml:"listen"`
	JWTSecret string `toml:"jwt_secret"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultInstance: "main",
		Gateway:         GatewayConfig{TimeoutSeconds: 30},
		Relay:           RelayConfig{Function: "wpp-proxy"},
		Inbox:           InboxConfig{MessageWindow: 200},
		Status:          StatusConfig{PollIntervalSeconds: 15},
		RelayServer:     RelayServerConfig{Listen: "127.0.0.1:8787"},
	}
}

// Timeout returns the gateway HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// PollInterval returns the connection status poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Status.PollIntervalSeconds) * time.Second
}

// Load reads config from the given path over the defaults. Returns error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

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
