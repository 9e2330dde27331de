package config

import (
	"time"

	"github.com/rickgao/chatlink/internal/connection"
)

// ChatConfig is the root configuration for a chat client.
type ChatConfig struct {
	Server    ServerConfig    `yaml:"server"`
	User      UserConfig      `yaml:"user"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Transport TransportConfig `yaml:"transport"`
	Send      SendConfig      `yaml:"send"`
	UI        UIConfig        `yaml:"ui"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig identifies the chat endpoint.
type ServerConfig struct {
	URL       string `yaml:"url"` // ws:// or wss://
	UserAgent string `yaml:"user_agent"`
}

// UserConfig holds the announced identity. Empty fields are generated.
type UserConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ReconnectConfig holds the automatic retry policy.
type ReconnectConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	// MaxAttempts is a pointer so an explicit 0 (never retry) survives defaulting.
	MaxAttempts *int `yaml:"max_attempts"`
}

// TransportConfig holds per-connection WebSocket settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	// PingInterval is a pointer so an explicit 0 (no heartbeat) survives
	// defaulting.
	PingInterval *time.Duration `yaml:"ping_interval"`
	PingTimeout  time.Duration  `yaml:"ping_timeout"`
	ReadLimit    int64          `yaml:"read_limit"`
	BufferSize   int            `yaml:"buffer_size"`
}

// Heartbeat returns the ping interval, DefaultPingInterval when unset.
func (t TransportConfig) Heartbeat() time.Duration {
	if t.PingInterval == nil {
		return DefaultPingInterval
	}
	return *t.PingInterval
}

// SendConfig holds the outbound rate limit. Rate 0 disables it.
type SendConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	StatusTimeout time.Duration `yaml:"status_timeout"`
	HistoryLimit  int           `yaml:"history_limit"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // used by the TUI, which owns the terminal
}

// ManagerConfig converts the file settings into a connection.ManagerConfig.
func (c *ChatConfig) ManagerConfig() connection.ManagerConfig {
	mc := connection.ManagerConfig{
		URL:                c.Server.URL,
		UserAgent:          c.Server.UserAgent,
		ReconnectBaseDelay: c.Reconnect.BaseDelay,
		ReconnectMaxDelay:  c.Reconnect.MaxDelay,
		HandshakeTimeout:   c.Transport.HandshakeTimeout,
		PingInterval:       c.Transport.Heartbeat(),
		PingTimeout:        c.Transport.PingTimeout,
		WriteTimeout:       c.Transport.WriteTimeout,
		ReadLimit:          c.Transport.ReadLimit,
		MessageBufferSize:  c.Transport.BufferSize,
		SendRate:           c.Send.Rate,
		SendBurst:          c.Send.Burst,
	}
	if c.Reconnect.MaxAttempts != nil {
		mc.MaxReconnectAttempts = *c.Reconnect.MaxAttempts
	} else {
		mc.MaxReconnectAttempts = DefaultMaxAttempts
	}
	return mc
}
