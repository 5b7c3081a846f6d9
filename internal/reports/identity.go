package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/radiusdt/shop-reports/internal/models"
	"github.com/radiusdt/shop-reports/internal/storage"
)

// CustomerKey derives a stable customer identity from an order:
// "id:<customer_id>" for registered customers, "email:<lowercased>" for
// guests with a billing email, "" when neither is present.
func CustomerKey(o *models.Order) string {
	if o.CustomerID != 0 {
		return fmt.Sprintf("id:%d", o.CustomerID)
	}
	if o.BillingEmail != "" {
		return "email:" + strings.ToLower(o.BillingEmail)
	}
	return ""
}

func customerRef(o *models.Order) storage.CustomerRef {
	if o.CustomerID != 0 {
		return storage.CustomerRef{CustomerID: o.CustomerID}
	}
	return storage.CustomerRef{Email: o.BillingEmail}
}

// IsNewCustomer reports whether this is the customer's first qualifying
// order: no other qualifying order under the same identity sorts before
// it by creation time (id breaks ties).  Orders with no resolvable
// identity have no prior-order history and count as new, which keeps
// new + returning equal to the daily order count.
//
// Performs one order-source query per call; callers must not invoke it
// more than once per order within a single aggregation pass.
func IsNewCustomer(ctx context.Context, src storage.OrderSource, o *models.Order) (bool, error) {
	other, err := src.FirstOrder(ctx, customerRef(o), models.QualifyingStatuses, o.ID)
	if err != nil {
		return false, err
	}
	if other == nil {
		return true, nil
	}
	if o.CreatedAt.Equal(other.CreatedAt) {
		return o.ID < other.ID, nil
	}
	return o.CreatedAt.Before(other.CreatedAt), nil
}

// FirstOrderCache memoizes cohort-month lookups for one recomputation
// run.  Each distinct customer key triggers at most one order-source
// query regardless of how many of the customer's orders fall in the
// window.  Never share a cache across runs.
type FirstOrderCache struct {
	months map[string]string
}

func NewFirstOrderCache() *FirstOrderCache {
	return &FirstOrderCache{months: make(map[string]string)}
}

// CohortMonth resolves the first-of-month date of the customer's
// earliest qualifying order across the whole order source (not limited
// to the recomputation window).  Returns "" for orders whose customer
// identity cannot be resolved; such orders are excluded from cohorts.
func CohortMonth(ctx context.Context, src storage.OrderSource, o *models.Order, cache *FirstOrderCache) (string, error) {
	key := CustomerKey(o)
	if key == "" {
		return "", nil
	}

	if month, ok := cache.months[key]; ok {
		return month, nil
	}

	first, err := src.FirstOrder(ctx, customerRef(o), models.QualifyingStatuses, "")
	if err != nil {
		return "", err
	}
	if first == nil || first.CreatedAt.IsZero() {
		cache.months[key] = ""
		return "", nil
	}

	month := monthOf(first.CreatedAt)
	cache.months[key] = month
	return month, nil
}

// ReportDate is the daily aggregation key for an order: its creation
// date in the reporting timezone (UTC), falling back to today's date
// when the order has no creation timestamp.
func ReportDate(o *models.Order, now time.Time) string {
	if o.CreatedAt.IsZero() {
		return now.UTC().Format("2006-01-02")
	}
	return o.CreatedAt.UTC().Format("2006-01-02")
}

func monthOf(t time.Time) string {
	return t.UTC().Format("2006-01") + "-01"
}

func monthOfDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return monthOf(t)
}
