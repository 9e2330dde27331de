package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/chatlink/internal/clock"
	"github.com/rickgao/chatlink/internal/queue"
	"golang.org/x/time/rate"
)

// Manager owns one logical chat session and keeps it connected.
type Manager interface {
	// Connect starts a session for identity. It is a no-op while the
	// connection is open; otherwise any in-flight attempt and pending
	// retry are abandoned and a fresh failure streak begins.
	Connect(identity Identity) error

	// Send forwards payload to the server. Returns ErrNotConnected unless
	// the connection is open; the payload is never queued.
	Send(payload []byte) error

	// State returns the current lifecycle state.
	State() State

	// IsConnected reports whether State() == StateOpen.
	IsConnected() bool

	// Stats returns current connection statistics.
	Stats() ManagerStats

	// Close tears the manager down: cancels any pending retry, closes the
	// live handle and stops the event loop. No observer callback starts
	// after Close has been called. Safe to call more than once.
	Close() error
}

// Option configures a Manager.
type Option func(*manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the clock used to schedule reconnects.
func WithClock(c clock.Clock) Option {
	return func(m *manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithDialer replaces the transport factory.
func WithDialer(d Dialer) Option {
	return func(m *manager) {
		if d != nil {
			m.dial = d
		}
	}
}

// WithHooks installs instrumentation hooks.
func WithHooks(h Hooks) Option {
	return func(m *manager) {
		if h != nil {
			m.hooks = h
		}
	}
}

type eventKind int

const (
	evConnect eventKind = iota
	evOpened
	evDialFailed
	evMessage
	evError
	evClosed
	evRetry
	evWake
)

// event is one unit of work for the loop. gen identifies the handle
// (or, for evRetry, the timer) the event belongs to.
type event struct {
	kind     eventKind
	gen      uint64
	identity Identity
	data     []byte
	at       time.Time
	err      error
}

// manager implements the Manager interface.
type manager struct {
	cfg     ManagerConfig
	obs     Observer
	logger  *slog.Logger
	clock   clock.Clock
	dial    Dialer
	hooks   Hooks
	limiter *rate.Limiter

	events *queue.Queue[event]
	done   chan struct{}

	closed     atomic.Bool
	inCallback atomic.Bool

	// Written by the loop, and by Close for client, cancelDial and timer.
	// Anything another goroutine can write is read under mu.
	mu         sync.RWMutex
	state      State
	client     Client
	gen        uint64
	identity   Identity
	attempts   int
	timer      clock.Timer
	timerSeq   uint64
	cancelDial context.CancelFunc
	openedAt   time.Time
	lastMsgAt  time.Time

	received  atomic.Int64
	sent      atomic.Int64
	rejected  atomic.Int64
	transport atomic.Int64
	giveUps   atomic.Int64
}

// NewManager creates a Connection Manager and starts its event loop.
// Nothing is dialed until Connect is called.
func NewManager(cfg ManagerConfig, obs Observer, opts ...Option) Manager {
	m := &manager{
		cfg:    cfg.withDefaults(),
		obs:    obs,
		logger: slog.Default(),
		clock:  clock.Real(),
		dial:   NewClient,
		hooks:  nopHooks{},
		events: queue.New[event](64),
		done:   make(chan struct{}),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.SendRate > 0 {
		burst := m.cfg.SendBurst
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(m.cfg.SendRate), burst)
	}

	go m.run()
	return m
}

// Connect enqueues a connect request.
func (m *manager) Connect(identity Identity) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if identity.ID == "" {
		return ErrInvalidIdentity
	}
	if !m.events.Push(event{kind: evConnect, identity: identity}) {
		return ErrManagerClosed
	}
	return nil
}

// Send writes payload to the live handle.
func (m *manager) Send(payload []byte) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	m.mu.RLock()
	state, c := m.state, m.client
	m.mu.RUnlock()

	if state != StateOpen || c == nil {
		m.rejected.Add(1)
		m.hooks.SendRejected(ErrNotConnected)
		return ErrNotConnected
	}
	if m.limiter != nil && !m.limiter.Allow() {
		m.rejected.Add(1)
		m.hooks.SendRejected(ErrRateLimited)
		return ErrRateLimited
	}

	if err := c.Send(payload); err != nil {
		m.rejected.Add(1)
		m.hooks.SendRejected(err)
		return fmt.Errorf("send: %w", err)
	}
	m.sent.Add(1)
	m.hooks.MessageSent(len(payload))
	return nil
}

// State returns the current state.
func (m *manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the connection is open.
func (m *manager) IsConnected() bool {
	return m.State() == StateOpen
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.RLock()
	stats := ManagerStats{
		State:         m.state,
		Attempts:      m.attempts,
		Generation:    m.gen,
		RetryPending:  m.timer != nil,
		LastMessageAt: m.lastMsgAt,
	}
	c := m.client
	if m.state == StateOpen {
		stats.ConnectedSince = m.openedAt
	}
	m.mu.RUnlock()

	stats.TransportUp = c != nil && c.IsConnected()

	stats.MessagesReceived = m.received.Load()
	stats.MessagesSent = m.sent.Load()
	stats.SendsRejected = m.rejected.Load()
	stats.TransportErrors = m.transport.Load()
	stats.GiveUps = m.giveUps.Load()
	stats.Events = m.events.Stats()
	return stats
}

// Close tears the manager down. The pending retry and the live handle
// are released before Close returns, from any goroutine. While an
// observer callback is running Close does not wait for the loop, since
// the loop may be the caller.
func (m *manager) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.logger.Debug("closing connection manager")
		m.cancelTimer()
		m.dropHandle()
		m.events.Push(event{kind: evWake})
	}
	if m.inCallback.Load() {
		return nil
	}
	<-m.done
	return nil
}

// run is the event loop. Every transition happens here.
func (m *manager) run() {
	defer close(m.done)

	for {
		e, ok := m.events.Pop()
		if !ok || m.closed.Load() {
			m.teardown()
			return
		}
		m.handle(e)
	}
}

// handle is the single transition function.
func (m *manager) handle(e event) {
	switch e.kind {
	case evConnect:
		m.onConnect(e.identity)
	case evOpened:
		if m.current(e.gen) {
			m.onOpened()
		}
	case evDialFailed:
		if m.current(e.gen) {
			m.onTransportError(&DialError{URL: m.cfg.URL, Err: e.err})
			m.onClosed()
		}
	case evMessage:
		if m.current(e.gen) && m.state == StateOpen {
			m.mu.Lock()
			m.lastMsgAt = e.at
			m.mu.Unlock()
			m.received.Add(1)
			m.hooks.MessageReceived(len(e.data))
			m.notify("OnMessage", func() {
				if m.obs.OnMessage != nil {
					m.obs.OnMessage(e.data)
				}
			})
		}
	case evError:
		if m.current(e.gen) {
			m.onTransportError(e.err)
		}
	case evClosed:
		if m.current(e.gen) {
			m.onClosed()
		}
	case evRetry:
		m.onRetry(e.gen)
	case evWake:
	}
}

// current reports whether gen is the live handle.
func (m *manager) current(gen uint64) bool {
	return m.live() != nil && gen == m.gen
}

// live returns the live handle. Close may clear it from another
// goroutine.
func (m *manager) live() Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *manager) onConnect(identity Identity) {
	if m.state == StateOpen {
		m.logger.Debug("connect ignored, already open")
		return
	}

	m.mu.Lock()
	m.identity = identity
	m.attempts = 0
	m.mu.Unlock()

	m.cancelTimer()
	m.dropHandle()
	m.open()
}

// open dials a new handle. The caller guarantees no handle is live.
func (m *manager) open() {
	if m.closed.Load() {
		return
	}
	if m.live() != nil {
		m.logger.Error("refusing to open a second handle", "generation", m.gen)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	gen := m.gen + 1
	c := m.dial(m.cfg.clientConfig(), m.logger.With("generation", gen))

	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		cancel()
		c.Close()
		return
	}
	m.gen = gen
	m.client = c
	m.cancelDial = cancel
	m.mu.Unlock()

	m.setState(StateConnecting)
	m.hooks.DialAttempt()
	m.logger.Info("connecting", "url", m.cfg.URL, "generation", gen, "attempt", m.attempts)

	go func() {
		if err := c.Connect(ctx); err != nil {
			m.events.Push(event{kind: evDialFailed, gen: gen, err: err})
			return
		}
		m.events.Push(event{kind: evOpened, gen: gen})
	}()
}

func (m *manager) onOpened() {
	c := m.live()
	if c == nil {
		return
	}
	frame, err := m.identity.Encode()
	if err == nil {
		err = c.Send(frame)
	}
	if err != nil {
		m.onTransportError(fmt.Errorf("%w: %v", ErrIdentityRejected, err))
		m.onClosed()
		return
	}

	m.mu.Lock()
	m.attempts = 0
	m.openedAt = m.clock.Now()
	m.mu.Unlock()
	m.cancelTimer()
	m.setState(StateOpen)

	go m.pump(m.gen, c)

	m.logger.Info("connected", "url", m.cfg.URL, "user", m.identity.Name, "generation", m.gen)
	m.notify("OnOpen", func() {
		if m.obs.OnOpen != nil {
			m.obs.OnOpen()
		}
	})
}

func (m *manager) onTransportError(err error) {
	m.transport.Add(1)
	m.hooks.TransportError()
	m.logger.Warn("transport error", "error", err)
	m.notify("OnError", func() {
		if m.obs.OnError != nil {
			m.obs.OnError(err)
		}
	})
}

// onClosed handles the end of the live handle, whatever the cause.
func (m *manager) onClosed() {
	m.dropHandle()
	m.setState(StateClosed)
	m.notify("OnClose", func() {
		if m.obs.OnClose != nil {
			m.obs.OnClose()
		}
	})

	if m.attempts < m.cfg.MaxReconnectAttempts {
		m.scheduleReconnect()
		return
	}

	m.giveUps.Add(1)
	m.hooks.GaveUp(m.attempts)
	m.logger.Warn("reconnect budget exhausted", "attempts", m.attempts)
	attempts := m.attempts
	m.notify("OnGiveUp", func() {
		if m.obs.OnGiveUp != nil {
			m.obs.OnGiveUp(attempts)
		}
	})
}

// scheduleReconnect is the only place a retry timer is created.
func (m *manager) scheduleReconnect() {
	m.cancelTimer()

	delay := Backoff(m.cfg.ReconnectBaseDelay, m.cfg.ReconnectMaxDelay, m.attempts)

	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		return
	}
	m.attempts++
	m.timerSeq++
	seq := m.timerSeq
	attempt := m.attempts
	m.timer = m.clock.AfterFunc(delay, func() {
		m.events.Push(event{kind: evRetry, gen: seq})
	})
	m.mu.Unlock()

	m.hooks.ReconnectScheduled(attempt, delay)
	m.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
}

func (m *manager) onRetry(seq uint64) {
	m.mu.Lock()
	if m.timer == nil || seq != m.timerSeq {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	if m.state != StateClosed {
		return
	}
	m.open()
}

// cancelTimer stops the pending retry, if any.
func (m *manager) cancelTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// dropHandle closes the live or in-flight handle, if any. Events the
// old handle still produces are ignored because current() fails.
func (m *manager) dropHandle() {
	m.mu.Lock()
	c, cancel := m.client, m.cancelDial
	m.client = nil
	m.cancelDial = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		if err := c.Close(); err != nil {
			m.logger.Debug("close handle", "error", err)
		}
	}
}

func (m *manager) teardown() {
	m.setState(StateClosing)
	m.cancelTimer()
	m.dropHandle()
	m.setState(StateClosed)

	m.events.Close()
	if n := m.events.Discard(); n > 0 {
		m.logger.Debug("discarded events on teardown", "count", n)
	}
	m.logger.Info("connection manager stopped")
}

func (m *manager) setState(to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()

	if from == to {
		return
	}
	m.hooks.StateChanged(from, to)
	m.logger.Debug("state changed", "from", from, "to", to)
	m.notify("OnStateChange", func() {
		if m.obs.OnStateChange != nil {
			m.obs.OnStateChange(from, to)
		}
	})
}

// notify runs one observer callback, isolating panics. Nothing fires
// once Close has been called.
func (m *manager) notify(name string, fn func()) {
	if m.closed.Load() {
		return
	}
	m.inCallback.Store(true)
	defer m.inCallback.Store(false)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("observer callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}

// pump moves one handle's traffic onto the event queue.
func (m *manager) pump(gen uint64, c Client) {
	for msg := range c.Messages() {
		m.events.Push(event{kind: evMessage, gen: gen, data: msg.Data, at: msg.ReceivedAt})
	}
	select {
	case err := <-c.Errors():
		m.events.Push(event{kind: evError, gen: gen, err: err})
	default:
	}
	m.events.Push(event{kind: evClosed, gen: gen})
}
