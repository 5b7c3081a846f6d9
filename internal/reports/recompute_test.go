package reports

import (
	"context"
	"testing"

	"github.com/radiusdt/shop-reports/internal/models"
	"github.com/radiusdt/shop-reports/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestRecomputer() (*Recomputer, *storage.InMemoryOrderStore, *storage.InMemoryAggregateStore) {
	orders := storage.NewInMemoryOrderStore()
	store := storage.NewInMemoryAggregateStore()
	return NewRecomputer(orders, store, nil, zap.NewNop(), nil), orders, store
}

func TestRecomputeRebuildsWindow(t *testing.T) {
	ctx := context.Background()
	rec, orders, store := newTestRecomputer()
	now := date("2026-08-29")

	orders.AddOrder(&models.Order{
		ID:         "o1",
		Status:     models.StatusCompleted,
		CustomerID: 1,
		CreatedAt:  date("2026-08-10"),
		Total:      decimal.NewFromInt(100),
		Items: []models.OrderItem{
			{ProductID: 7, Total: decimal.NewFromInt(100), Quantity: 2},
		},
	})
	orders.AddOrder(&models.Order{
		ID:            "o2",
		Status:        models.StatusProcessing,
		CustomerID:    2,
		CreatedAt:     date("2026-08-10"),
		Total:         decimal.NewFromInt(50),
		TotalRefunded: decimal.NewFromInt(10),
	})
	// Non-qualifying status is ignored.
	orders.AddOrder(&models.Order{
		ID:        "o3",
		Status:    "cancelled",
		CreatedAt: date("2026-08-10"),
		Total:     decimal.NewFromInt(999),
	})

	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	days, err := store.TrendsSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("TrendsSince: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 daily row, got %d", len(days))
	}
	d := days[0]
	if !d.Revenue.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected revenue 150, got %s", d.Revenue)
	}
	if d.OrdersCount != 2 {
		t.Errorf("expected orders_count 2, got %d", d.OrdersCount)
	}
	if !d.Refunds.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected refunds 10, got %s", d.Refunds)
	}
	if !d.AOV.Equal(decimal.NewFromInt(75)) {
		t.Errorf("expected aov 75, got %s", d.AOV)
	}
	if d.NewCustomers != 2 || d.ReturningCustomers != 0 {
		t.Errorf("expected new=2 returning=0, got new=%d returning=%d", d.NewCustomers, d.ReturningCustomers)
	}
}

func TestRecomputeConverges(t *testing.T) {
	ctx := context.Background()
	rec, orders, store := newTestRecomputer()
	now := date("2026-08-29")

	orders.AddOrder(&models.Order{
		ID:         "o1",
		Status:     models.StatusCompleted,
		CustomerID: 1,
		CreatedAt:  date("2026-08-15"),
		Total:      decimal.NewFromInt(60),
	})

	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("first Recompute: %v", err)
	}
	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("second Recompute: %v", err)
	}

	m, err := store.OverviewSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("OverviewSince: %v", err)
	}
	if m.OrdersCount != 1 {
		t.Errorf("expected orders_count 1 after repeated recomputes, got %d", m.OrdersCount)
	}
	if !m.Revenue.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected revenue 60 after repeated recomputes, got %s", m.Revenue)
	}
}

func TestRecomputeCorrectsIncrementalDrift(t *testing.T) {
	ctx := context.Background()
	rec, orders, store := newTestRecomputer()
	now := date("2026-08-29")

	orders.AddOrder(&models.Order{
		ID:         "o1",
		Status:     models.StatusCompleted,
		CustomerID: 1,
		CreatedAt:  date("2026-08-15"),
		Total:      decimal.NewFromInt(70),
	})

	// Simulate a double-applied incremental contribution.
	drifted := &models.DailySummary{
		ReportDate:  "2026-08-15",
		Revenue:     decimal.NewFromInt(140),
		OrdersCount: 2,
		AOV:         decimal.NewFromInt(70),
	}
	if err := store.ReplaceDaily(ctx, drifted); err != nil {
		t.Fatalf("ReplaceDaily: %v", err)
	}

	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	m, err := store.OverviewSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("OverviewSince: %v", err)
	}
	if m.OrdersCount != 1 {
		t.Errorf("expected drift corrected to orders_count 1, got %d", m.OrdersCount)
	}
	if !m.Revenue.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected drift corrected to revenue 70, got %s", m.Revenue)
	}
}

func TestRecomputeWindowBoundary(t *testing.T) {
	ctx := context.Background()
	rec, orders, store := newTestRecomputer()
	now := date("2026-08-29")

	// Exactly 30 days back is inside the window.
	orders.AddOrder(&models.Order{
		ID:         "edge",
		Status:     models.StatusCompleted,
		CustomerID: 1,
		CreatedAt:  date("2026-07-30"),
		Total:      decimal.NewFromInt(10),
	})
	// 31 days back is outside and never scanned.
	orders.AddOrder(&models.Order{
		ID:         "old",
		Status:     models.StatusCompleted,
		CustomerID: 2,
		CreatedAt:  date("2026-07-29"),
		Total:      decimal.NewFromInt(500),
	})

	// A pre-existing row outside the window survives the rebuild.
	outside := &models.DailySummary{
		ReportDate:   "2026-07-29",
		Revenue:      decimal.NewFromInt(500),
		OrdersCount:  1,
		AOV:          decimal.NewFromInt(500),
		NewCustomers: 1,
	}
	if err := store.ReplaceDaily(ctx, outside); err != nil {
		t.Fatalf("ReplaceDaily: %v", err)
	}

	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	days, err := store.TrendsSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("TrendsSince: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 daily rows, got %d", len(days))
	}
	if days[0].ReportDate != "2026-07-29" || !days[0].Revenue.Equal(decimal.NewFromInt(500)) {
		t.Errorf("row outside window should be untouched, got %+v", days[0])
	}
	if days[1].ReportDate != "2026-07-30" || !days[1].Revenue.Equal(decimal.NewFromInt(10)) {
		t.Errorf("boundary row should be rebuilt, got %+v", days[1])
	}
}

func TestRecomputeCohorts(t *testing.T) {
	ctx := context.Background()
	rec, orders, store := newTestRecomputer()
	now := date("2026-08-29")

	// Customer 1 acquired in June (outside the 30-day window) and
	// ordering again inside it: one repeat order in the June cohort.
	orders.AddOrder(&models.Order{
		ID:         "c1-first",
		Status:     models.StatusCompleted,
		CustomerID: 1,
		CreatedAt:  date("2026-06-15"),
		Total:      decimal.NewFromInt(20),
	})
	orders.AddOrder(&models.Order{
		ID:         "c1-repeat",
		Status:     models.StatusCompleted,
		CustomerID: 1,
		CreatedAt:  date("2026-08-10"),
		Total:      decimal.NewFromInt(35),
	})

	// Customer 2 acquired inside the window with three August orders:
	// same-month orders are not repeats.
	for _, o := range []*models.Order{
		{ID: "c2-a", CreatedAt: date("2026-08-05"), Total: decimal.NewFromInt(10)},
		{ID: "c2-b", CreatedAt: date("2026-08-12"), Total: decimal.NewFromInt(15)},
		{ID: "c2-c", CreatedAt: date("2026-08-20"), Total: decimal.NewFromInt(25)},
	} {
		o.Status = models.StatusCompleted
		o.CustomerID = 2
		orders.AddOrder(o)
	}

	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	rows, err := store.CohortsSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("CohortsSince: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 cohort rows, got %d", len(rows))
	}

	// Descending by cohort month: August first, then June.
	aug, jun := rows[0], rows[1]
	if aug.CohortMonth != "2026-08-01" || jun.CohortMonth != "2026-06-01" {
		t.Fatalf("unexpected cohort months %q, %q", aug.CohortMonth, jun.CohortMonth)
	}

	if aug.CustomersCount != 1 || aug.OrdersCount != 3 {
		t.Errorf("august cohort: expected customers=1 orders=3, got customers=%d orders=%d",
			aug.CustomersCount, aug.OrdersCount)
	}
	if aug.RepeatOrdersCount != 0 {
		t.Errorf("same-month orders must not count as repeats, got %d", aug.RepeatOrdersCount)
	}
	if !aug.Revenue.Equal(decimal.NewFromInt(50)) {
		t.Errorf("august cohort: expected revenue 50, got %s", aug.Revenue)
	}

	// Only the in-window order is folded, but it lands in the June
	// cohort and counts as a repeat.
	if jun.CustomersCount != 1 || jun.OrdersCount != 1 {
		t.Errorf("june cohort: expected customers=1 orders=1, got customers=%d orders=%d",
			jun.CustomersCount, jun.OrdersCount)
	}
	if jun.RepeatOrdersCount != 1 {
		t.Errorf("june cohort: expected 1 repeat order, got %d", jun.RepeatOrdersCount)
	}
	if !jun.RepeatRevenue.Equal(decimal.NewFromInt(35)) {
		t.Errorf("june cohort: expected repeat revenue 35, got %s", jun.RepeatRevenue)
	}
}

func TestRecomputeExcludesGuestsWithoutIdentityFromCohorts(t *testing.T) {
	ctx := context.Background()
	rec, orders, store := newTestRecomputer()
	now := date("2026-08-29")

	orders.AddOrder(&models.Order{
		ID:        "anon",
		Status:    models.StatusCompleted,
		CreatedAt: date("2026-08-10"),
		Total:     decimal.NewFromInt(30),
	})

	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	rows, err := store.CohortsSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("CohortsSince: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no cohort rows for unidentified guests, got %d", len(rows))
	}

	// The order still counts in the daily totals.
	m, err := store.OverviewSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("OverviewSince: %v", err)
	}
	if m.OrdersCount != 1 {
		t.Errorf("expected daily orders_count 1, got %d", m.OrdersCount)
	}
}

func TestRecomputeAfterIncrementalApply(t *testing.T) {
	ctx := context.Background()
	orders := storage.NewInMemoryOrderStore()
	store := storage.NewInMemoryAggregateStore()
	agg := NewAggregator(orders, store, zap.NewNop(), nil)
	rec := NewRecomputer(orders, store, nil, zap.NewNop(), nil)
	now := date("2026-08-29")

	orders.AddOrder(&models.Order{
		ID:         "o1",
		Status:     models.StatusCompleted,
		CustomerID: 1,
		CreatedAt:  date("2026-08-15"),
		Total:      decimal.NewFromInt(90),
	})

	if err := agg.Apply(ctx, "o1"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := rec.Recompute(ctx, now); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	m, err := store.OverviewSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("OverviewSince: %v", err)
	}
	if m.OrdersCount != 1 {
		t.Errorf("recompute after apply must not double count, got orders_count %d", m.OrdersCount)
	}
	if !m.Revenue.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected revenue 90, got %s", m.Revenue)
	}
}
