package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses considered revenue-recognized for reporting.
const (
	StatusCompleted  = "completed"
	StatusProcessing = "processing"
)

// QualifyingStatuses is the status set that counts toward aggregates.
var QualifyingStatuses = []string{StatusCompleted, StatusProcessing}

// Metadata keys read/written on orders by the aggregation engine.
// Attribution keys are populated by the checkout system before an order
// reaches a qualifying status; the aggregated-date marker is owned by
// the incremental aggregator.
const (
	MetaAggregatedDate = "_aggregated_date"
	MetaUTMSource      = "_utm_source"
	MetaUTMMedium      = "_utm_medium"
	MetaUTMCampaign    = "_utm_campaign"
)

// Order is the view of a store order the reporting engine needs.  It is
// produced by an OrderSource; the engine never creates orders, it only
// reads them and writes metadata back.
type Order struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	CustomerID    int64             `json:"customer_id,omitempty"` // 0 for guest checkout
	BillingEmail  string            `json:"billing_email,omitempty"`
	Total         decimal.Decimal   `json:"total"`
	TotalRefunded decimal.Decimal   `json:"total_refunded"`
	Items         []OrderItem       `json:"items,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// OrderItem is a single purchased line on an order.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Total     decimal.Decimal `json:"total"`
	Quantity  int64           `json:"quantity"`
}

// Meta returns a metadata value, or "" when absent.
func (o *Order) Meta(key string) string {
	if o.Metadata == nil {
		return ""
	}
	return o.Metadata[key]
}

// Attribution is the normalized marketing channel tuple recorded on an
// order.  Source/Medium are never empty after resolution; Campaign may be.
type Attribution struct {
	Source   string `json:"source"`
	Medium   string `json:"medium"`
	Campaign string `json:"campaign"`
}
