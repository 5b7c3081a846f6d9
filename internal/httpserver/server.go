package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/shop-reports/internal/config"
	"github.com/radiusdt/shop-reports/internal/database"
	"github.com/radiusdt/shop-reports/internal/metrics"
	"github.com/radiusdt/shop-reports/internal/reports"
	"github.com/radiusdt/shop-reports/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB      *database.PostgresDB
	Redis   *database.RedisDB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps HTTP handlers and the reporting services.
type Server struct {
	aggregator *reports.Aggregator
	recomputer *reports.Recomputer
	dashboard  *reports.Dashboard
	logger     *zap.Logger
	config     *config.Config
	metrics    *metrics.Metrics
	mux        *http.ServeMux
}

// NewServer constructs a Server with all routes registered.
func NewServer(deps *Dependencies) *Server {
	// Initialize stores
	var orders storage.OrderSource
	var store storage.AggregateStore

	if deps.DB != nil {
		orders = storage.NewPostgresOrderStore(deps.DB.Pool)
		store = storage.NewPostgresAggregateStore(deps.DB.Pool)
	} else {
		orders = storage.NewInMemoryOrderStore()
		store = storage.NewInMemoryAggregateStore()
	}

	var rdb *redis.Client
	if deps.Redis != nil {
		rdb = deps.Redis.Client
	}

	s := &Server{
		aggregator: reports.NewAggregator(orders, store, deps.Logger, deps.Metrics),
		recomputer: reports.NewRecomputer(orders, store, rdb, deps.Logger, deps.Metrics),
		dashboard:  reports.NewDashboard(store, rdb, deps.Config.Reporting.CacheTTL, deps.Logger, deps.Metrics),
		logger:     deps.Logger,
		config:     deps.Config,
		metrics:    deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Order events
	mux.HandleFunc("/events/order-paid", s.handleOrderPaid)

	// Admin
	mux.HandleFunc("/admin/recompute", s.handleRecompute)

	// Reports
	mux.HandleFunc("/reports/overview", s.handleOverview)
	mux.HandleFunc("/reports/products", s.handleTopProducts)
	mux.HandleFunc("/reports/channels", s.handleTopChannels)
	mux.HandleFunc("/reports/trends", s.handleTrends)
	mux.HandleFunc("/reports/cohorts", s.handleCohorts)

	s.mux = mux
	return s
}

// Handler returns the route multiplexer for middleware wrapping.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Recomputer exposes the batch recomputer for the scheduler.
func (s *Server) Recomputer() *reports.Recomputer {
	return s.recomputer
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Order Events ----

type orderPaidEvent struct {
	OrderID string `json:"order_id"`
}

func (s *Server) handleOrderPaid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev orderPaidEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if ev.OrderID == "" {
		s.errorResponse(w, "order_id required", http.StatusBadRequest)
		return
	}

	eventID := uuid.NewString()
	if err := s.aggregator.Apply(r.Context(), ev.OrderID); err != nil {
		s.logger.Error("failed to aggregate order",
			zap.String("event_id", eventID),
			zap.String("order_id", ev.OrderID),
			zap.Error(err),
		)
		s.errorResponse(w, "failed to aggregate order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":   "accepted",
		"event_id": eventID,
	})
}

// ---- Admin ----

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if err := s.recomputer.Recompute(r.Context(), time.Now().UTC()); err != nil {
		s.logger.Error("manual recomputation failed", zap.Error(err))
		s.errorResponse(w, "recomputation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]string{
		"status":   "ok",
		"duration": time.Since(start).String(),
	})
}

// ---- Reports ----

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m, err := s.dashboard.Overview(r.Context(), intQuery(r, "days", 30))
	if err != nil {
		s.logger.Error("failed to get overview", zap.Error(err))
		s.errorResponse(w, "failed to get overview", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, m)
}

func (s *Server) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := s.dashboard.TopProducts(r.Context(), intQuery(r, "days", 30), intQuery(r, "limit", 10))
	if err != nil {
		s.logger.Error("failed to get top products", zap.Error(err))
		s.errorResponse(w, "failed to get top products", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, rows)
}

func (s *Server) handleTopChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := s.dashboard.TopChannels(r.Context(), intQuery(r, "days", 30), intQuery(r, "limit", 10))
	if err != nil {
		s.logger.Error("failed to get top channels", zap.Error(err))
		s.errorResponse(w, "failed to get top channels", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, rows)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := s.dashboard.DailyTrends(r.Context(), intQuery(r, "days", 30))
	if err != nil {
		s.logger.Error("failed to get trends", zap.Error(err))
		s.errorResponse(w, "failed to get trends", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, rows)
}

func (s *Server) handleCohorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := s.dashboard.Cohorts(r.Context(), intQuery(r, "months", 6))
	if err != nil {
		s.logger.Error("failed to get cohorts", zap.Error(err))
		s.errorResponse(w, "failed to get cohorts", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, rows)
}

// ---- Helper Methods ----

func intQuery(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
