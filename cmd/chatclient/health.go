package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/metrics"
)

// newMux serves Prometheus metrics on metricsPath and connection
// health on /health.
func newMux(metricsPath string, gatherer prometheus.Gatherer, mgr connection.Manager) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler(gatherer))
	mux.HandleFunc("/health", healthHandler(mgr))
	return mux
}

func healthHandler(mgr connection.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := mgr.Stats()

		health := struct {
			Status           string `json:"status"`
			State            string `json:"state"`
			Attempts         int    `json:"attempts"`
			RetryPending     bool   `json:"retry_pending"`
			MessagesReceived int64  `json:"messages_received"`
			MessagesSent     int64  `json:"messages_sent"`
			GiveUps          int64  `json:"give_ups"`
			TransportUp      bool   `json:"transport_up"`
			QueuedEvents     int    `json:"queued_events"`
			ConnectedSince   string `json:"connected_since,omitempty"`
			LastMessageAt    string `json:"last_message_at,omitempty"`
		}{
			Status:           "healthy",
			State:            stats.State.String(),
			Attempts:         stats.Attempts,
			RetryPending:     stats.RetryPending,
			MessagesReceived: stats.MessagesReceived,
			MessagesSent:     stats.MessagesSent,
			GiveUps:          stats.GiveUps,
			TransportUp:      stats.TransportUp,
			QueuedEvents:     stats.Events.Len,
		}
		if !stats.ConnectedSince.IsZero() {
			health.ConnectedSince = stats.ConnectedSince.UTC().Format(time.RFC3339)
		}
		if !stats.LastMessageAt.IsZero() {
			health.LastMessageAt = stats.LastMessageAt.UTC().Format(time.RFC3339)
		}

		switch {
		case stats.State == connection.StateOpen && stats.TransportUp:
		case stats.State == connection.StateOpen, stats.RetryPending || stats.State == connection.StateConnecting:
			health.Status = "degraded"
		default:
			health.Status = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}
}
