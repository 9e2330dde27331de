package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerURL        = "ws://localhost:8080/ws"
	DefaultBaseDelay        = 1 * time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultMaxAttempts      = 5
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultPingInterval     = 54 * time.Second
	DefaultPingTimeout      = 60 * time.Second
	DefaultReadLimit        = 64 * 1024
	DefaultBufferSize       = 256
	DefaultSendBurst        = 5
	DefaultStatusTimeout    = 5 * time.Second
	DefaultHistoryLimit     = 500
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
	DefaultLogLevel         = "info"
)

func (c *ChatConfig) applyDefaults() {
	// Server defaults
	if c.Server.URL == "" {
		c.Server.URL = DefaultServerURL
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultBaseDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultMaxDelay
	}
	if c.Reconnect.MaxAttempts == nil {
		n := DefaultMaxAttempts
		c.Reconnect.MaxAttempts = &n
	}

	// Transport defaults
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}
	if c.Transport.PingInterval == nil {
		d := DefaultPingInterval
		c.Transport.PingInterval = &d
	}
	if c.Transport.PingTimeout == 0 {
		c.Transport.PingTimeout = DefaultPingTimeout
	}
	if c.Transport.ReadLimit == 0 {
		c.Transport.ReadLimit = DefaultReadLimit
	}
	if c.Transport.BufferSize == 0 {
		c.Transport.BufferSize = DefaultBufferSize
	}

	// Send defaults
	if c.Send.Rate > 0 && c.Send.Burst == 0 {
		c.Send.Burst = DefaultSendBurst
	}

	// UI defaults
	if c.UI.StatusTimeout == 0 {
		c.UI.StatusTimeout = DefaultStatusTimeout
	}
	if c.UI.HistoryLimit == 0 {
		c.UI.HistoryLimit = DefaultHistoryLimit
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
