package models

import "github.com/shopspring/decimal"

// Aggregate rows are keyed by calendar date strings in the reporting
// timezone (UTC), "2006-01-02" for daily rows and "2006-01-01"-style
// first-of-month dates for cohorts.  String keys keep day granularity
// explicit and make the rows directly usable as map keys during
// recomputation.

// DailySummary is one reporting day of store-wide totals.
type DailySummary struct {
	ReportDate         string          `json:"report_date"`
	Revenue            decimal.Decimal `json:"revenue"`
	OrdersCount        int64           `json:"orders_count"`
	Refunds            decimal.Decimal `json:"refunds"`
	AOV                decimal.Decimal `json:"aov"`
	NewCustomers       int64           `json:"new_customers"`
	ReturningCustomers int64           `json:"returning_customers"`
}

// ProductDaily is one product's sales on one reporting day.
type ProductDaily struct {
	ReportDate string          `json:"report_date,omitempty"`
	ProductID  int64           `json:"product_id"`
	Revenue    decimal.Decimal `json:"revenue"`
	Quantity   int64           `json:"quantity"`
}

// ChannelDaily is one marketing channel tuple's totals on one reporting
// day.  The tuple is never null: unattributed orders land under
// ("direct", "none", "").
type ChannelDaily struct {
	ReportDate  string          `json:"report_date,omitempty"`
	Source      string          `json:"source"`
	Medium      string          `json:"medium"`
	Campaign    string          `json:"campaign"`
	Revenue     decimal.Decimal `json:"revenue"`
	OrdersCount int64           `json:"orders_count"`
}

// CohortMonthly groups customers by the month of their first qualifying
// order.  OrdersCount/Revenue cover all of the cohort's orders observed
// in the recomputation window; the repeat fields cover the subset placed
// in a later calendar month than the cohort month.
type CohortMonthly struct {
	CohortMonth       string          `json:"cohort_month"`
	CustomersCount    int64           `json:"customers_count"`
	OrdersCount       int64           `json:"orders_count"`
	Revenue           decimal.Decimal `json:"revenue"`
	RepeatOrdersCount int64           `json:"repeat_orders_count"`
	RepeatRevenue     decimal.Decimal `json:"repeat_revenue"`
}

// OverviewMetrics is the dashboard roll-up over a trailing range.
type OverviewMetrics struct {
	Revenue            decimal.Decimal `json:"revenue"`
	OrdersCount        int64           `json:"orders_count"`
	Refunds            decimal.Decimal `json:"refunds"`
	AOV                decimal.Decimal `json:"aov"`
	NewCustomers       int64           `json:"new_customers"`
	ReturningCustomers int64           `json:"returning_customers"`
}
