package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/radiusdt/shop-reports/internal/config"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:   true,
		MasterKey: "secret",
		SkipPaths: []string{"/health", "/events/order-paid"},
	}
	mw := NewAuthMiddleware(cfg, zap.NewNop())
	h := mw.Handler(okHandler())

	cases := []struct {
		name   string
		path   string
		header string
		query  string
		want   int
	}{
		{"missing key", "/reports/overview", "", "", http.StatusUnauthorized},
		{"wrong key", "/reports/overview", "nope", "", http.StatusUnauthorized},
		{"valid header", "/reports/overview", "secret", "", http.StatusOK},
		{"valid query param", "/reports/overview", "", "secret", http.StatusOK},
		{"skip path", "/health", "", "", http.StatusOK},
		{"skip event ingest", "/events/order-paid", "", "", http.StatusOK},
	}
	for _, tc := range cases {
		url := tc.path
		if tc.query != "" {
			url += "?api_key=" + tc.query
		}
		req := httptest.NewRequest(http.MethodGet, url, nil)
		if tc.header != "" {
			req.Header.Set(AuthHeaderName, tc.header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	mw := NewAuthMiddleware(config.AuthConfig{Enabled: false}, zap.NewNop())
	h := mw.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/reports/overview", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", w.Code)
	}
}

func TestRateLimitSeparateBuckets(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:     true,
		EventRPS:    1,
		EventBurst:  1,
		ReportRPS:   1,
		ReportBurst: 1,
	}
	mw := NewRateLimitMiddleware(cfg, zap.NewNop(), nil)
	h := mw.Handler(okHandler())

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	// Draining the report bucket must not affect the event bucket.
	if code := send("/reports/overview"); code != http.StatusOK {
		t.Fatalf("first report request: expected 200, got %d", code)
	}
	if code := send("/reports/overview"); code != http.StatusTooManyRequests {
		t.Errorf("second report request: expected 429, got %d", code)
	}
	if code := send("/events/order-paid"); code != http.StatusOK {
		t.Errorf("event request after report limit: expected 200, got %d", code)
	}
	if code := send("/events/order-paid"); code != http.StatusTooManyRequests {
		t.Errorf("second event request: expected 429, got %d", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	mw := NewRateLimitMiddleware(config.RateLimitConfig{Enabled: false}, zap.NewNop(), nil)
	h := mw.Handler(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/reports/overview", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with limiting disabled, got %d", i, w.Code)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := NewRecoveryMiddleware(zap.NewNop())
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/reports/overview", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", w.Code)
	}
}
