package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickgao/chatlink/internal/connection"
)

const namespace = "chatlink"

var allStates = []connection.State{
	connection.StateIdle,
	connection.StateConnecting,
	connection.StateOpen,
	connection.StateClosing,
	connection.StateClosed,
}

// Collector records connection manager events as Prometheus metrics.
// It implements connection.Hooks.
type Collector struct {
	state            *prometheus.GaugeVec
	transitions      *prometheus.CounterVec
	dialAttempts     prometheus.Counter
	reconnectDelay   prometheus.Histogram
	reconnectAttempt prometheus.Gauge
	giveUps          prometheus.Counter
	messagesIn       prometheus.Counter
	messagesOut      prometheus.Counter
	bytesIn          prometheus.Counter
	bytesOut         prometheus.Counter
	sendRejected     *prometheus.CounterVec
	transportErrors  prometheus.Counter
}

var _ connection.Hooks = (*Collector)(nil)

// New creates a Collector and registers its metrics on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "transitions_total",
			Help:      "Connection state transitions.",
		}, []string{"from", "to"}),
		dialAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "dial_attempts_total",
			Help:      "Connection attempts started, manual and automatic.",
		}),
		reconnectDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconnect",
			Name:      "delay_seconds",
			Help:      "Delay before each scheduled reconnect.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 30, 60},
		}),
		reconnectAttempt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconnect",
			Name:      "attempt",
			Help:      "Attempt number of the most recently scheduled reconnect.",
		}),
		giveUps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconnect",
			Name:      "give_ups_total",
			Help:      "Times the reconnect budget was exhausted.",
		}),
		messagesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "Inbound frames delivered to the observer.",
		}),
		messagesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Outbound frames written to the server.",
		}),
		bytesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "received_bytes_total",
			Help:      "Inbound payload bytes.",
		}),
		bytesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "sent_bytes_total",
			Help:      "Outbound payload bytes.",
		}),
		sendRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "send_rejected_total",
			Help:      "Sends that did not reach the server, by reason.",
		}, []string{"reason"}),
		transportErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "transport_errors_total",
			Help:      "Dial, read and heartbeat failures.",
		}),
	}

	c.setState(connection.StateIdle)
	return c
}

// Handler serves the metrics in gatherer over HTTP.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) setState(current connection.State) {
	for _, s := range allStates {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}

// StateChanged implements connection.Hooks.
func (c *Collector) StateChanged(from, to connection.State) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
	c.setState(to)
}

// DialAttempt implements connection.Hooks.
func (c *Collector) DialAttempt() {
	c.dialAttempts.Inc()
}

// ReconnectScheduled implements connection.Hooks.
func (c *Collector) ReconnectScheduled(attempt int, delay time.Duration) {
	c.reconnectAttempt.Set(float64(attempt))
	c.reconnectDelay.Observe(delay.Seconds())
}

// GaveUp implements connection.Hooks.
func (c *Collector) GaveUp(attempts int) {
	c.giveUps.Inc()
	c.reconnectAttempt.Set(float64(attempts))
}

// MessageReceived implements connection.Hooks.
func (c *Collector) MessageReceived(size int) {
	c.messagesIn.Inc()
	c.bytesIn.Add(float64(size))
}

// MessageSent implements connection.Hooks.
func (c *Collector) MessageSent(size int) {
	c.messagesOut.Inc()
	c.bytesOut.Add(float64(size))
}

// SendRejected implements connection.Hooks.
func (c *Collector) SendRejected(reason error) {
	c.sendRejected.WithLabelValues(rejectReason(reason)).Inc()
}

// TransportError implements connection.Hooks.
func (c *Collector) TransportError() {
	c.transportErrors.Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, connection.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, connection.ErrRateLimited):
		return "rate_limited"
	default:
		return "transport"
	}
}
