package reports

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/radiusdt/shop-reports/internal/metrics"
	"github.com/radiusdt/shop-reports/internal/models"
	"github.com/radiusdt/shop-reports/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Trailing windows rebuilt by every recomputation run.
const (
	AggregationDays = 30
	CohortMonths    = 12
)

const (
	recomputeLockKey = "reports:recompute:lock"
	recomputeLockTTL = 30 * time.Minute
)

// Recomputer rebuilds all aggregates over the trailing window from the
// authoritative order source.  It is the periodic correction authority:
// late refunds, backfilled orders and any incremental drift are resolved
// here.  The delete-then-rebuild sequence is not isolated from
// concurrent incremental applies; aggregates converge once a run
// completes.
type Recomputer struct {
	orders  storage.OrderSource
	store   storage.AggregateStore
	redis   *redis.Client // optional cross-process run lock
	logger  *zap.Logger
	metrics *metrics.Metrics
	mu      sync.Mutex
}

// NewRecomputer constructs a Recomputer.  redis may be nil, in which
// case overlapping runs are only excluded within this process.
func NewRecomputer(orders storage.OrderSource, store storage.AggregateStore, rdb *redis.Client, logger *zap.Logger, m *metrics.Metrics) *Recomputer {
	return &Recomputer{orders: orders, store: store, redis: rdb, logger: logger, metrics: m}
}

type cohortAccumulator struct {
	customers     map[string]struct{}
	ordersCount   int64
	revenue       decimal.Decimal
	repeatOrders  int64
	repeatRevenue decimal.Decimal
}

// Recompute deletes every aggregate row in the trailing window and
// rebuilds it from the full qualifying order set.  A run already in
// flight causes this call to return immediately without effect.  A
// failure after the delete step leaves the window empty: fail-loud,
// visible in the dashboard, repaired by re-triggering.
func (r *Recomputer) Recompute(ctx context.Context, now time.Time) error {
	if !r.mu.TryLock() {
		r.logger.Info("recomputation already running in this process, skipping")
		return nil
	}
	defer r.mu.Unlock()

	if r.redis != nil {
		ok, err := r.redis.SetNX(ctx, recomputeLockKey, "1", recomputeLockTTL).Result()
		if err == nil && !ok {
			r.logger.Info("recomputation already running elsewhere, skipping")
			return nil
		}
		// On a lock error proceed anyway: a duplicate run is harmless
		// beyond wasted work, a skipped run leaves stale aggregates.
		if err == nil {
			defer r.redis.Del(context.WithoutCancel(ctx), recomputeLockKey)
		}
	}

	start := time.Now()
	now = now.UTC()
	windowStart := now.AddDate(0, 0, -AggregationDays).Format("2006-01-02")
	cohortStart := monthOf(now.AddDate(0, -CohortMonths, 0))

	r.logger.Info("recomputation starting",
		zap.String("window_start", windowStart),
		zap.String("cohort_start", cohortStart),
	)

	if err := r.deleteWindow(ctx, windowStart, cohortStart); err != nil {
		r.metrics.RecordRecompute("error", time.Since(start), 0)
		return err
	}

	windowStartTime, _ := time.Parse("2006-01-02", windowStart)
	orders, err := r.orders.ListOrders(ctx, models.QualifyingStatuses, windowStartTime)
	if err != nil {
		r.metrics.RecordRecompute("error", time.Since(start), 0)
		return err
	}

	daily := make(map[string]*models.DailySummary)
	products := make(map[string]*models.ProductDaily)
	channels := make(map[string]*models.ChannelDaily)
	cohorts := make(map[string]*cohortAccumulator)
	cache := NewFirstOrderCache()

	for _, o := range orders {
		if err := r.fold(ctx, o, now, daily, products, channels, cohorts, cache); err != nil {
			r.metrics.RecordRecompute("error", time.Since(start), len(orders))
			return err
		}
	}

	if err := r.flush(ctx, daily, products, channels, cohorts); err != nil {
		r.metrics.RecordRecompute("error", time.Since(start), len(orders))
		return err
	}

	r.metrics.RecordRecompute("ok", time.Since(start), len(orders))
	r.logger.Info("recomputation finished",
		zap.Int("orders", len(orders)),
		zap.Int("daily_rows", len(daily)),
		zap.Int("product_rows", len(products)),
		zap.Int("channel_rows", len(channels)),
		zap.Int("cohort_rows", len(cohorts)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (r *Recomputer) deleteWindow(ctx context.Context, windowStart, cohortStart string) error {
	if err := r.store.DeleteDailyFrom(ctx, windowStart); err != nil {
		return err
	}
	if err := r.store.DeleteProductFrom(ctx, windowStart); err != nil {
		return err
	}
	if err := r.store.DeleteChannelFrom(ctx, windowStart); err != nil {
		return err
	}
	return r.store.DeleteCohortFrom(ctx, cohortStart)
}

func (r *Recomputer) fold(
	ctx context.Context,
	o *models.Order,
	now time.Time,
	daily map[string]*models.DailySummary,
	products map[string]*models.ProductDaily,
	channels map[string]*models.ChannelDaily,
	cohorts map[string]*cohortAccumulator,
	cache *FirstOrderCache,
) error {
	reportDate := ReportDate(o, now)

	isNew, err := IsNewCustomer(ctx, r.orders, o)
	if err != nil {
		return err
	}

	d, ok := daily[reportDate]
	if !ok {
		d = &models.DailySummary{ReportDate: reportDate}
		daily[reportDate] = d
	}
	d.Revenue = d.Revenue.Add(o.Total)
	d.OrdersCount++
	d.Refunds = d.Refunds.Add(o.TotalRefunded)
	if isNew {
		d.NewCustomers++
	} else {
		d.ReturningCustomers++
	}

	for _, item := range o.Items {
		if item.ProductID == 0 {
			continue
		}
		key := reportDate + "|" + strconv.FormatInt(item.ProductID, 10)
		p, ok := products[key]
		if !ok {
			p = &models.ProductDaily{ReportDate: reportDate, ProductID: item.ProductID}
			products[key] = p
		}
		p.Revenue = p.Revenue.Add(item.Total)
		p.Quantity += item.Quantity
	}

	attr := ResolveAttribution(o)
	chKey := reportDate + "|" + attr.Source + "|" + attr.Medium + "|" + attr.Campaign
	c, ok := channels[chKey]
	if !ok {
		c = &models.ChannelDaily{
			ReportDate: reportDate,
			Source:     attr.Source,
			Medium:     attr.Medium,
			Campaign:   attr.Campaign,
		}
		channels[chKey] = c
	}
	c.Revenue = c.Revenue.Add(o.Total)
	c.OrdersCount++

	cohortMonth, err := CohortMonth(ctx, r.orders, o, cache)
	if err != nil {
		return err
	}
	if cohortMonth == "" {
		return nil
	}

	acc, ok := cohorts[cohortMonth]
	if !ok {
		acc = &cohortAccumulator{customers: make(map[string]struct{})}
		cohorts[cohortMonth] = acc
	}
	if key := CustomerKey(o); key != "" {
		acc.customers[key] = struct{}{}
	}
	acc.ordersCount++
	acc.revenue = acc.revenue.Add(o.Total)

	// A repeat order is one placed in a calendar month after the
	// customer's first-order month.
	if cohortMonth != monthOfDate(reportDate) {
		acc.repeatOrders++
		acc.repeatRevenue = acc.repeatRevenue.Add(o.Total)
	}
	return nil
}

func (r *Recomputer) flush(
	ctx context.Context,
	daily map[string]*models.DailySummary,
	products map[string]*models.ProductDaily,
	channels map[string]*models.ChannelDaily,
	cohorts map[string]*cohortAccumulator,
) error {
	for _, d := range daily {
		if d.OrdersCount > 0 {
			d.AOV = d.Revenue.Div(decimal.NewFromInt(d.OrdersCount))
		} else {
			d.AOV = decimal.Zero
		}
		if err := r.store.ReplaceDaily(ctx, d); err != nil {
			return err
		}
	}
	for _, p := range products {
		if err := r.store.ReplaceProduct(ctx, p); err != nil {
			return err
		}
	}
	for _, c := range channels {
		if err := r.store.ReplaceChannel(ctx, c); err != nil {
			return err
		}
	}
	for month, acc := range cohorts {
		row := &models.CohortMonthly{
			CohortMonth:       month,
			CustomersCount:    int64(len(acc.customers)),
			OrdersCount:       acc.ordersCount,
			Revenue:           acc.revenue,
			RepeatOrdersCount: acc.repeatOrders,
			RepeatRevenue:     acc.repeatRevenue,
		}
		if err := r.store.ReplaceCohort(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
