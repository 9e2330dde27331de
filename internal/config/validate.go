package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *ChatConfig) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url must use ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("server.url must include a host")
	}

	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("reconnect.max_delay (%v) cannot be less than base_delay (%v)",
			c.Reconnect.MaxDelay, c.Reconnect.BaseDelay)
	}
	if c.Reconnect.MaxAttempts != nil && *c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect.max_attempts must be >= 0")
	}

	if ping := c.Transport.Heartbeat(); ping < 0 {
		return errors.New("transport.ping_interval must be >= 0")
	} else if ping > 0 && c.Transport.PingTimeout <= ping {
		return fmt.Errorf("transport.ping_timeout (%v) must exceed ping_interval (%v)",
			c.Transport.PingTimeout, ping)
	}
	if c.Transport.ReadLimit < 0 {
		return errors.New("transport.read_limit must be >= 0")
	}
	if c.Transport.BufferSize < 1 {
		return errors.New("transport.buffer_size must be >= 1")
	}

	if c.Send.Rate < 0 {
		return errors.New("send.rate must be >= 0")
	}
	if c.Send.Rate > 0 && c.Send.Burst < 1 {
		return errors.New("send.burst must be >= 1 when send.rate is set")
	}

	if c.UI.HistoryLimit < 1 {
		return errors.New("ui.history_limit must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps a log.level value to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}
