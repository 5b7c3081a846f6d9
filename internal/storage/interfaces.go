package storage

import (
	"context"
	"time"

	"github.com/radiusdt/shop-reports/internal/models"
)

// CustomerRef identifies a customer for order lookups: by registered
// customer id when present, else by billing email.  A zero ref matches
// no orders.
type CustomerRef struct {
	CustomerID int64
	Email      string
}

// IsZero reports whether the ref carries no usable identity.
func (r CustomerRef) IsZero() bool {
	return r.CustomerID == 0 && r.Email == ""
}

// =============================================
// ORDER SOURCE
// =============================================

// OrderSource exposes the order/checkout system to the reporting engine.
// The engine reads orders and writes per-order metadata; it never
// mutates order totals or line items.
type OrderSource interface {
	// GetOrder returns an order by id, or (nil, nil) when not found.
	GetOrder(ctx context.Context, id string) (*models.Order, error)

	// ListOrders returns every order in one of the given statuses with a
	// creation time at or after createdAfter.  Each matching order is
	// returned exactly once; no ordering is guaranteed.
	ListOrders(ctx context.Context, statuses []string, createdAfter time.Time) ([]*models.Order, error)

	// FirstOrder returns the earliest order for the referenced customer
	// in one of the given statuses, excluding excludeID when non-empty.
	// Returns (nil, nil) when the ref is zero or no order matches.
	FirstOrder(ctx context.Context, ref CustomerRef, statuses []string, excludeID string) (*models.Order, error)

	// SetOrderMeta persists a single metadata key on an order.
	SetOrderMeta(ctx context.Context, orderID, key, value string) error
}

// =============================================
// AGGREGATE STORE
// =============================================

// AggregateStore persists the four keyed aggregate tables.
//
// The Merge* operations are atomic merge-add upserts: absent key inserts
// the given row, present key adds the row's numeric fields to the stored
// values as a single read-modify-write.  Concurrent merges to the same
// key must be linearizable.
//
// The Replace* operations overwrite the row for a key wholesale; the
// Delete*From operations remove every row with a key at or after the
// given date.  Both exist for the batch recomputation path.
type AggregateStore interface {
	MergeDaily(ctx context.Context, row *models.DailySummary) error
	MergeProduct(ctx context.Context, row *models.ProductDaily) error
	MergeChannel(ctx context.Context, row *models.ChannelDaily) error

	ReplaceDaily(ctx context.Context, row *models.DailySummary) error
	ReplaceProduct(ctx context.Context, row *models.ProductDaily) error
	ReplaceChannel(ctx context.Context, row *models.ChannelDaily) error
	ReplaceCohort(ctx context.Context, row *models.CohortMonthly) error

	DeleteDailyFrom(ctx context.Context, date string) error
	DeleteProductFrom(ctx context.Context, date string) error
	DeleteChannelFrom(ctx context.Context, date string) error
	DeleteCohortFrom(ctx context.Context, month string) error

	// Read side, consumed by the dashboard layer.  Empty ranges yield
	// zero-valued results, never errors.
	OverviewSince(ctx context.Context, date string) (*models.OverviewMetrics, error)
	TopProductsSince(ctx context.Context, date string, limit int) ([]*models.ProductDaily, error)
	TopChannelsSince(ctx context.Context, date string, limit int) ([]*models.ChannelDaily, error)
	TrendsSince(ctx context.Context, date string) ([]*models.DailySummary, error)
	CohortsSince(ctx context.Context, month string) ([]*models.CohortMonthly, error)
}
