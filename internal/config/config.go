// Package config provides configuration loading for loanchat.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the loanchat client.
type Config struct {
	Agent    AgentConfig    `koanf:"agent"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Upload   UploadConfig   `koanf:"upload"`
	Log      LogConfig      `koanf:"log"`
}

// AgentConfig configures the loan-agent streaming backend.
type AgentConfig struct {
	// BaseURL is the agent API base, e.g. https://api.example.com.
	// The stream endpoint is <BaseURL>/loan-agent/stream.
	BaseURL string `koanf:"base_url"`
	// Timeout bounds the initial connection, not the stream itself.
	// Streams stay open until the server finishes or the session is closed.
	Timeout Duration `koanf:"timeout"`
}

// RealtimeConfig configures the push channel that delivers applicant
// snapshot updates.
type RealtimeConfig struct {
	// URL is the NATS server URL, e.g. nats://localhost:4222.
	URL string `koanf:"url"`
}

// UploadConfig configures the presigned-URL upload service.
type UploadConfig struct {
	BaseURL string `koanf:"base_url"`
	// MaxFileSize is the per-file upload limit in bytes.
	MaxFileSize int64 `koanf:"max_file_size"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NewDefaultConfig returns a config with usable defaults for everything
// except the agent base URL, which has no sensible default.
func NewDefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Timeout: Duration(30 * time.Second),
		},
		Realtime: RealtimeConfig{
			URL: "nats://localhost:4222",
		},
		Upload: UploadConfig{
			MaxFileSize: 5 * 1024 * 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Agent.BaseURL == "" {
		return fmt.Errorf("agent.base_url is required")
	}
	if err := validateHTTPURL(c.Agent.BaseURL); err != nil {
		return fmt.Errorf("agent.base_url: %w", err)
	}
	if c.Agent.Timeout.Duration() <= 0 {
		return fmt.Errorf("agent.timeout must be > 0")
	}
	if c.Realtime.URL == "" {
		return fmt.Errorf("realtime.url is required")
	}
	if c.Upload.BaseURL != "" {
		if err := validateHTTPURL(c.Upload.BaseURL); err != nil {
			return fmt.Errorf("upload.base_url: %w", err)
		}
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be > 0")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console', got %q", c.Log.Format)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}
