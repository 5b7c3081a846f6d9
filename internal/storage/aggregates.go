package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/shop-reports/internal/models"
)

// PostgresAggregateStore implements AggregateStore using PostgreSQL.
// Merge-add upserts are single INSERT ... ON CONFLICT statements so a
// concurrent merge to the same key is one atomic read-modify-write at
// the row level.
type PostgresAggregateStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAggregateStore(pool *pgxpool.Pool) *PostgresAggregateStore {
	return &PostgresAggregateStore{pool: pool}
}

// =============================================
// Merge-add upserts (incremental path)
// =============================================

func (s *PostgresAggregateStore) MergeDaily(ctx context.Context, row *models.DailySummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports_daily (report_date, revenue, orders_count, refunds, aov, new_customers, returning_customers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (report_date) DO UPDATE SET
			revenue = reports_daily.revenue + EXCLUDED.revenue,
			orders_count = reports_daily.orders_count + EXCLUDED.orders_count,
			refunds = reports_daily.refunds + EXCLUDED.refunds,
			aov = CASE WHEN reports_daily.orders_count + EXCLUDED.orders_count > 0
				THEN (reports_daily.revenue + EXCLUDED.revenue) / (reports_daily.orders_count + EXCLUDED.orders_count)
				ELSE 0 END,
			new_customers = reports_daily.new_customers + EXCLUDED.new_customers,
			returning_customers = reports_daily.returning_customers + EXCLUDED.returning_customers
	`, row.ReportDate, row.Revenue, row.OrdersCount, row.Refunds, row.AOV, row.NewCustomers, row.ReturningCustomers)
	if err != nil {
		return fmt.Errorf("failed to merge daily summary: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) MergeProduct(ctx context.Context, row *models.ProductDaily) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports_products_daily (report_date, product_id, revenue, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (report_date, product_id) DO UPDATE SET
			revenue = reports_products_daily.revenue + EXCLUDED.revenue,
			quantity = reports_products_daily.quantity + EXCLUDED.quantity
	`, row.ReportDate, row.ProductID, row.Revenue, row.Quantity)
	if err != nil {
		return fmt.Errorf("failed to merge product daily: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) MergeChannel(ctx context.Context, row *models.ChannelDaily) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports_channels_daily (report_date, source, medium, campaign, revenue, orders_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_date, source, medium, campaign) DO UPDATE SET
			revenue = reports_channels_daily.revenue + EXCLUDED.revenue,
			orders_count = reports_channels_daily.orders_count + EXCLUDED.orders_count
	`, row.ReportDate, row.Source, row.Medium, row.Campaign, row.Revenue, row.OrdersCount)
	if err != nil {
		return fmt.Errorf("failed to merge channel daily: %w", err)
	}
	return nil
}

// =============================================
// Overwrite upserts (recomputation path)
// =============================================

func (s *PostgresAggregateStore) ReplaceDaily(ctx context.Context, row *models.DailySummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports_daily (report_date, revenue, orders_count, refunds, aov, new_customers, returning_customers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (report_date) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			orders_count = EXCLUDED.orders_count,
			refunds = EXCLUDED.refunds,
			aov = EXCLUDED.aov,
			new_customers = EXCLUDED.new_customers,
			returning_customers = EXCLUDED.returning_customers
	`, row.ReportDate, row.Revenue, row.OrdersCount, row.Refunds, row.AOV, row.NewCustomers, row.ReturningCustomers)
	if err != nil {
		return fmt.Errorf("failed to replace daily summary: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) ReplaceProduct(ctx context.Context, row *models.ProductDaily) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports_products_daily (report_date, product_id, revenue, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (report_date, product_id) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			quantity = EXCLUDED.quantity
	`, row.ReportDate, row.ProductID, row.Revenue, row.Quantity)
	if err != nil {
		return fmt.Errorf("failed to replace product daily: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) ReplaceChannel(ctx context.Context, row *models.ChannelDaily) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports_channels_daily (report_date, source, medium, campaign, revenue, orders_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_date, source, medium, campaign) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			orders_count = EXCLUDED.orders_count
	`, row.ReportDate, row.Source, row.Medium, row.Campaign, row.Revenue, row.OrdersCount)
	if err != nil {
		return fmt.Errorf("failed to replace channel daily: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) ReplaceCohort(ctx context.Context, row *models.CohortMonthly) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports_cohorts_monthly (cohort_month, customers_count, orders_count, revenue, repeat_orders_count, repeat_revenue)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cohort_month) DO UPDATE SET
			customers_count = EXCLUDED.customers_count,
			orders_count = EXCLUDED.orders_count,
			revenue = EXCLUDED.revenue,
			repeat_orders_count = EXCLUDED.repeat_orders_count,
			repeat_revenue = EXCLUDED.repeat_revenue
	`, row.CohortMonth, row.CustomersCount, row.OrdersCount, row.Revenue, row.RepeatOrdersCount, row.RepeatRevenue)
	if err != nil {
		return fmt.Errorf("failed to replace cohort: %w", err)
	}
	return nil
}

// =============================================
// Window deletes
// =============================================

func (s *PostgresAggregateStore) DeleteDailyFrom(ctx context.Context, date string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reports_daily WHERE report_date >= $1`, date)
	if err != nil {
		return fmt.Errorf("failed to delete daily summaries: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) DeleteProductFrom(ctx context.Context, date string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reports_products_daily WHERE report_date >= $1`, date)
	if err != nil {
		return fmt.Errorf("failed to delete product dailies: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) DeleteChannelFrom(ctx context.Context, date string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reports_channels_daily WHERE report_date >= $1`, date)
	if err != nil {
		return fmt.Errorf("failed to delete channel dailies: %w", err)
	}
	return nil
}

func (s *PostgresAggregateStore) DeleteCohortFrom(ctx context.Context, month string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reports_cohorts_monthly WHERE cohort_month >= $1`, month)
	if err != nil {
		return fmt.Errorf("failed to delete cohorts: %w", err)
	}
	return nil
}

// =============================================
// Dashboard range queries
// =============================================

func (s *PostgresAggregateStore) OverviewSince(ctx context.Context, date string) (*models.OverviewMetrics, error) {
	var m models.OverviewMetrics
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(revenue), 0),
			COALESCE(SUM(orders_count), 0)::bigint,
			COALESCE(SUM(refunds), 0),
			COALESCE(AVG(aov), 0),
			COALESCE(SUM(new_customers), 0)::bigint,
			COALESCE(SUM(returning_customers), 0)::bigint
		FROM reports_daily
		WHERE report_date >= $1
	`, date).Scan(&m.Revenue, &m.OrdersCount, &m.Refunds, &m.AOV, &m.NewCustomers, &m.ReturningCustomers)
	if err != nil {
		return nil, fmt.Errorf("failed to query overview: %w", err)
	}
	return &m, nil
}

func (s *PostgresAggregateStore) TopProductsSince(ctx context.Context, date string, limit int) ([]*models.ProductDaily, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, SUM(revenue), SUM(quantity)::bigint
		FROM reports_products_daily
		WHERE report_date >= $1
		GROUP BY product_id
		ORDER BY SUM(revenue) DESC
		LIMIT $2
	`, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	var out []*models.ProductDaily
	for rows.Next() {
		var p models.ProductDaily
		if err := rows.Scan(&p.ProductID, &p.Revenue, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresAggregateStore) TopChannelsSince(ctx context.Context, date string, limit int) ([]*models.ChannelDaily, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, medium, campaign, SUM(revenue), SUM(orders_count)::bigint
		FROM reports_channels_daily
		WHERE report_date >= $1
		GROUP BY source, medium, campaign
		ORDER BY SUM(revenue) DESC
		LIMIT $2
	`, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top channels: %w", err)
	}
	defer rows.Close()

	var out []*models.ChannelDaily
	for rows.Next() {
		var c models.ChannelDaily
		if err := rows.Scan(&c.Source, &c.Medium, &c.Campaign, &c.Revenue, &c.OrdersCount); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresAggregateStore) TrendsSince(ctx context.Context, date string) ([]*models.DailySummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT report_date::text, revenue, orders_count, refunds, aov, new_customers, returning_customers
		FROM reports_daily
		WHERE report_date >= $1
		ORDER BY report_date ASC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %w", err)
	}
	defer rows.Close()

	var out []*models.DailySummary
	for rows.Next() {
		var d models.DailySummary
		if err := rows.Scan(&d.ReportDate, &d.Revenue, &d.OrdersCount, &d.Refunds, &d.AOV, &d.NewCustomers, &d.ReturningCustomers); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *PostgresAggregateStore) CohortsSince(ctx context.Context, month string) ([]*models.CohortMonthly, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cohort_month::text, customers_count, orders_count, revenue, repeat_orders_count, repeat_revenue
		FROM reports_cohorts_monthly
		WHERE cohort_month >= $1
		ORDER BY cohort_month DESC
	`, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query cohorts: %w", err)
	}
	defer rows.Close()

	var out []*models.CohortMonthly
	for rows.Next() {
		var c models.CohortMonthly
		if err := rows.Scan(&c.CohortMonth, &c.CustomersCount, &c.OrdersCount, &c.Revenue, &c.RepeatOrdersCount, &c.RepeatRevenue); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
