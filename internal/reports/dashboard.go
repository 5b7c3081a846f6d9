package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/radiusdt/shop-reports/internal/metrics"
	"github.com/radiusdt/shop-reports/internal/models"
	"github.com/radiusdt/shop-reports/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dashboard serves read-only range queries over the aggregate tables.
// Results are cached in Redis for a short TTL when a client is
// configured; cache failures fall back to the store.
type Dashboard struct {
	store    storage.AggregateStore
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewDashboard constructs a Dashboard.  rdb may be nil to disable caching.
func NewDashboard(store storage.AggregateStore, rdb *redis.Client, cacheTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) *Dashboard {
	return &Dashboard{store: store, redis: rdb, cacheTTL: cacheTTL, logger: logger, metrics: m}
}

func sinceDate(now time.Time, days int) string {
	if days < 1 {
		days = 1
	}
	return now.UTC().AddDate(0, 0, -days).Format("2006-01-02")
}

func sinceMonth(now time.Time, months int) string {
	if months < 1 {
		months = 1
	}
	return monthOf(now.UTC().AddDate(0, -months, 0))
}

// Overview returns store-wide totals over the last N days.
func (d *Dashboard) Overview(ctx context.Context, days int) (*models.OverviewMetrics, error) {
	key := fmt.Sprintf("reports:overview:%d", days)
	var out models.OverviewMetrics
	if d.fromCache(ctx, "overview", key, &out) {
		return &out, nil
	}

	m, err := d.store.OverviewSince(ctx, sinceDate(time.Now(), days))
	if err != nil {
		return nil, err
	}
	d.toCache(ctx, key, m)
	return m, nil
}

// TopProducts returns the highest-revenue products over the last N days.
func (d *Dashboard) TopProducts(ctx context.Context, days, limit int) ([]*models.ProductDaily, error) {
	if limit < 1 {
		limit = 1
	}
	key := fmt.Sprintf("reports:products:%d:%d", days, limit)
	var out []*models.ProductDaily
	if d.fromCache(ctx, "products", key, &out) {
		return out, nil
	}

	rows, err := d.store.TopProductsSince(ctx, sinceDate(time.Now(), days), limit)
	if err != nil {
		return nil, err
	}
	d.toCache(ctx, key, rows)
	return rows, nil
}

// TopChannels returns the highest-revenue channel tuples over the last N days.
func (d *Dashboard) TopChannels(ctx context.Context, days, limit int) ([]*models.ChannelDaily, error) {
	if limit < 1 {
		limit = 1
	}
	key := fmt.Sprintf("reports:channels:%d:%d", days, limit)
	var out []*models.ChannelDaily
	if d.fromCache(ctx, "channels", key, &out) {
		return out, nil
	}

	rows, err := d.store.TopChannelsSince(ctx, sinceDate(time.Now(), days), limit)
	if err != nil {
		return nil, err
	}
	d.toCache(ctx, key, rows)
	return rows, nil
}

// DailyTrends returns per-day revenue and order counts over the last N
// days, ascending by date.
func (d *Dashboard) DailyTrends(ctx context.Context, days int) ([]*models.DailySummary, error) {
	key := fmt.Sprintf("reports:trends:%d", days)
	var out []*models.DailySummary
	if d.fromCache(ctx, "trends", key, &out) {
		return out, nil
	}

	rows, err := d.store.TrendsSince(ctx, sinceDate(time.Now(), days))
	if err != nil {
		return nil, err
	}
	d.toCache(ctx, key, rows)
	return rows, nil
}

// Cohorts returns the monthly cohort rows for the last N months,
// descending by cohort month.
func (d *Dashboard) Cohorts(ctx context.Context, months int) ([]*models.CohortMonthly, error) {
	key := fmt.Sprintf("reports:cohorts:%d", months)
	var out []*models.CohortMonthly
	if d.fromCache(ctx, "cohorts", key, &out) {
		return out, nil
	}

	rows, err := d.store.CohortsSince(ctx, sinceMonth(time.Now(), months))
	if err != nil {
		return nil, err
	}
	d.toCache(ctx, key, rows)
	return rows, nil
}

func (d *Dashboard) fromCache(ctx context.Context, report, key string, out any) bool {
	if d.redis == nil {
		d.metrics.RecordDashboardQuery(report, false)
		return false
	}
	raw, err := d.redis.Get(ctx, key).Bytes()
	if err != nil {
		d.metrics.RecordDashboardQuery(report, false)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		d.logger.Warn("corrupt dashboard cache entry", zap.String("key", key), zap.Error(err))
		d.metrics.RecordDashboardQuery(report, false)
		return false
	}
	d.metrics.RecordDashboardQuery(report, true)
	return true
}

func (d *Dashboard) toCache(ctx context.Context, key string, v any) {
	if d.redis == nil || d.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.redis.Set(ctx, key, raw, d.cacheTTL).Err(); err != nil {
		d.logger.Debug("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
