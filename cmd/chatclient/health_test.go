package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/connection"
)

type stubManager struct {
	stats connection.ManagerStats
}

func (s *stubManager) Connect(connection.Identity) error { return nil }
func (s *stubManager) Send([]byte) error                 { return nil }
func (s *stubManager) State() connection.State           { return s.stats.State }
func (s *stubManager) IsConnected() bool                 { return s.stats.State == connection.StateOpen }
func (s *stubManager) Stats() connection.ManagerStats    { return s.stats }
func (s *stubManager) Close() error                      { return nil }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		stats      connection.ManagerStats
		wantStatus string
		wantCode   int
	}{
		{
			name:       "open",
			stats:      connection.ManagerStats{State: connection.StateOpen, TransportUp: true, MessagesSent: 3},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
		{
			name:       "open with dead socket",
			stats:      connection.ManagerStats{State: connection.StateOpen},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
		{
			name:       "retry pending",
			stats:      connection.ManagerStats{State: connection.StateClosed, RetryPending: true, Attempts: 2},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
		{
			name:       "gave up",
			stats:      connection.ManagerStats{State: connection.StateClosed, Attempts: 5, GiveUps: 1},
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux("/metrics", prometheus.NewRegistry(), &stubManager{stats: tt.stats})
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body struct {
				Status   string `json:"status"`
				State    string `json:"state"`
				Attempts int    `json:"attempts"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if body.State != tt.stats.State.String() || body.Attempts != tt.stats.Attempts {
				t.Errorf("body = %+v, want state %v attempts %d", body, tt.stats.State, tt.stats.Attempts)
			}
		})
	}
}

func TestHealthHandlerTimestamps(t *testing.T) {
	since := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	stats := connection.ManagerStats{
		State:          connection.StateOpen,
		TransportUp:    true,
		ConnectedSince: since,
		LastMessageAt:  since.Add(time.Minute),
	}
	mux := newMux("/metrics", prometheus.NewRegistry(), &stubManager{stats: stats})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body struct {
		TransportUp    bool   `json:"transport_up"`
		ConnectedSince string `json:"connected_since"`
		LastMessageAt  string `json:"last_message_at"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.TransportUp {
		t.Error("transport_up = false")
	}
	if body.ConnectedSince != "2026-05-01T12:00:00Z" || body.LastMessageAt != "2026-05-01T12:01:00Z" {
		t.Errorf("timestamps = %q, %q", body.ConnectedSince, body.LastMessageAt)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := newMux("/metrics", prometheus.NewRegistry(), &stubManager{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}
}

func TestIdentity(t *testing.T) {
	u := identity(config.UserConfig{Name: "Alice"})
	if u.ID == "" || u.Name != "Alice" {
		t.Errorf("identity = %+v, want generated id and Alice", u)
	}

	u = identity(config.UserConfig{ID: "fixed-id"})
	if u.ID != "fixed-id" || u.Name == "" {
		t.Errorf("identity = %+v, want fixed-id and a random name", u)
	}
	if !u.Valid() {
		t.Errorf("identity %+v is not valid", u)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig("", "wss://chat.example.com/ws", "Bob")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.URL != "wss://chat.example.com/ws" || cfg.User.Name != "Bob" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Server, cfg.User)
	}

	if _, err := loadConfig("", "http://nope", ""); err == nil {
		t.Error("expected validation error for http URL")
	}
}
