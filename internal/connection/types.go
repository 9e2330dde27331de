package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/queue"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrManagerClosed    = errors.New("connection manager closed")
	ErrRateLimited      = errors.New("send rate limit exceeded")
	ErrInvalidIdentity  = errors.New("identity requires a non-empty id")
	ErrIdentityRejected = errors.New("identity frame could not be written")
)

// DialError reports a failed connection attempt.
type DialError struct {
	URL string
	Err error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %v", e.URL, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// State is the lifecycle state of the managed connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TimestampedMessage wraps raw frame data with its receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Observer receives inbound data and lifecycle notifications. Every
// field is optional. Callbacks run on the manager's event loop, one at
// a time; a panicking callback is recovered and logged.
type Observer struct {
	OnMessage     func(payload []byte)
	OnError       func(err error)
	OnClose       func()
	OnOpen        func()
	OnGiveUp      func(attempts int)
	OnStateChange func(from, to State)
}

// Identity is the session identity type announced on every connection.
type Identity = model.User

// ClientConfig configures a single WebSocket handle.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8080/ws)
	UserAgent        string        // Sent on the handshake when non-empty
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // How often we ping the server (0 disables heartbeat)
	PingTimeout      time.Duration // Max time without ping/pong/data before the handle is stale
	WriteTimeout     time.Duration // Write deadline for sends
	ReadLimit        int64         // Max inbound frame size in bytes (0 = unlimited)
	BufferSize       int           // Inbound message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     54 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        64 * 1024,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL                  string        // Fixed endpoint for every attempt
	UserAgent            string        // Handshake User-Agent
	ReconnectBaseDelay   time.Duration // Delay before the first automatic retry
	ReconnectMaxDelay    time.Duration // Upper bound on any retry delay
	MaxReconnectAttempts int           // Automatic retries per failure streak (0 = never retry)
	HandshakeTimeout     time.Duration
	PingInterval         time.Duration
	PingTimeout          time.Duration
	WriteTimeout         time.Duration
	ReadLimit            int64
	MessageBufferSize    int     // Per-handle inbound channel size
	SendRate             float64 // Outbound frames per second (0 = unlimited)
	SendBurst            int     // Outbound burst size when SendRate > 0
}

// DefaultManagerConfig returns the reconnect policy 1s * 2^n capped at
// 30s with at most 5 automatic attempts.
func DefaultManagerConfig() ManagerConfig {
	cc := DefaultClientConfig()
	return ManagerConfig{
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     cc.HandshakeTimeout,
		PingInterval:         cc.PingInterval,
		PingTimeout:          cc.PingTimeout,
		WriteTimeout:         cc.WriteTimeout,
		ReadLimit:            cc.ReadLimit,
		MessageBufferSize:    cc.BufferSize,
	}
}

// clientConfig derives the per-handle config.
func (c ManagerConfig) clientConfig() ClientConfig {
	return ClientConfig{
		URL:              c.URL,
		UserAgent:        c.UserAgent,
		HandshakeTimeout: c.HandshakeTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		WriteTimeout:     c.WriteTimeout,
		ReadLimit:        c.ReadLimit,
		BufferSize:       c.MessageBufferSize,
	}
}

// withDefaults fills zero timing and buffer fields. MaxReconnectAttempts
// is left alone: zero is a valid "never retry" policy.
func (c ManagerConfig) withDefaults() ManagerConfig {
	d := DefaultManagerConfig()
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = d.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = d.ReconnectMaxDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MessageBufferSize <= 0 {
		c.MessageBufferSize = d.MessageBufferSize
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	return c
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State            State
	Attempts         int    // Current reconnect counter
	Generation       uint64 // Number of handles opened so far
	RetryPending     bool
	MessagesReceived int64
	MessagesSent     int64
	SendsRejected    int64
	TransportErrors  int64
	GiveUps          int64
	TransportUp      bool      // Live handle still reports a working socket
	ConnectedSince   time.Time // Zero unless State is StateOpen
	LastMessageAt    time.Time // Receive time of the last delivered frame
	Events           queue.Stats
}
