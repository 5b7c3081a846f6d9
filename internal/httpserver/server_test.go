package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/radiusdt/shop-reports/internal/config"
	"go.uber.org/zap"
)

func newTestServer() *Server {
	cfg := &config.Config{
		Metrics: config.MetricsConfig{Enabled: false},
		Reporting: config.ReportingConfig{
			RecomputeInterval: 24 * time.Hour,
			CacheTTL:          time.Minute,
		},
	}
	return NewServer(&Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestOrderPaidValidation(t *testing.T) {
	s := newTestServer()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing order_id", `{}`, http.StatusBadRequest},
		{"unknown order accepted", `{"order_id":"missing"}`, http.StatusAccepted},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/events/order-paid", strings.NewReader(tc.body))
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/events/order-paid", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}
}

func TestAdminRecompute(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/admin/recompute", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestReportEndpointsEmptyStore(t *testing.T) {
	s := newTestServer()

	paths := []string{
		"/reports/overview",
		"/reports/products?days=7&limit=5",
		"/reports/channels",
		"/reports/trends?days=14",
		"/reports/cohorts?months=3",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: expected json content type, got %q", path, ct)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/reports/overview", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST on report endpoint, got %d", w.Code)
	}
}

func TestIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports/overview?days=15&bad=abc&neg=-3", nil)

	if got := intQuery(req, "days", 30); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
	if got := intQuery(req, "missing", 30); got != 30 {
		t.Errorf("expected default 30, got %d", got)
	}
	if got := intQuery(req, "bad", 30); got != 30 {
		t.Errorf("expected default for non-numeric, got %d", got)
	}
	if got := intQuery(req, "neg", 30); got != 30 {
		t.Errorf("expected default for negative, got %d", got)
	}
}
