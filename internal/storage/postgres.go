package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/shop-reports/internal/models"
)

// PostgresOrderStore implements OrderSource against the store's order
// tables (orders, order_items, order_meta).
type PostgresOrderStore struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderStore(pool *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{pool: pool}
}

func (s *PostgresOrderStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	var customerID *int64
	var email *string

	err := s.pool.QueryRow(ctx, `
		SELECT id, status, created_at, customer_id, billing_email, total, total_refunded
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.Status, &o.CreatedAt, &customerID, &email, &o.Total, &o.TotalRefunded)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if customerID != nil {
		o.CustomerID = *customerID
	}
	if email != nil {
		o.BillingEmail = *email
	}

	items, err := s.getItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	meta, err := s.getMeta(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Metadata = meta

	return &o, nil
}

func (s *PostgresOrderStore) ListOrders(ctx context.Context, statuses []string, createdAfter time.Time) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, status, created_at, customer_id, billing_email, total, total_refunded
		FROM orders
		WHERE status = ANY($1) AND created_at >= $2
	`, statuses, createdAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		var customerID *int64
		var email *string

		if err := rows.Scan(&o.ID, &o.Status, &o.CreatedAt, &customerID, &email, &o.Total, &o.TotalRefunded); err != nil {
			return nil, err
		}

		if customerID != nil {
			o.CustomerID = *customerID
		}
		if email != nil {
			o.BillingEmail = *email
		}

		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for _, o := range orders {
		items, err := s.getItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items

		meta, err := s.getMeta(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Metadata = meta
	}

	return orders, nil
}

func (s *PostgresOrderStore) FirstOrder(ctx context.Context, ref CustomerRef, statuses []string, excludeID string) (*models.Order, error) {
	if ref.IsZero() {
		return nil, nil
	}

	query := `
		SELECT id, status, created_at, customer_id, billing_email, total, total_refunded
		FROM orders
		WHERE status = ANY($1) AND id <> $2
	`
	args := []any{statuses, excludeID}

	if ref.CustomerID != 0 {
		query += ` AND customer_id = $3`
		args = append(args, ref.CustomerID)
	} else {
		query += ` AND lower(billing_email) = lower($3)`
		args = append(args, ref.Email)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT 1`

	var o models.Order
	var customerID *int64
	var email *string

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.Status, &o.CreatedAt, &customerID, &email, &o.Total, &o.TotalRefunded,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find first order: %w", err)
	}

	if customerID != nil {
		o.CustomerID = *customerID
	}
	if email != nil {
		o.BillingEmail = *email
	}

	return &o, nil
}

func (s *PostgresOrderStore) SetOrderMeta(ctx context.Context, orderID, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO order_meta (order_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, meta_key) DO UPDATE SET
			meta_value = EXCLUDED.meta_value
	`, orderID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set order meta: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) getItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, line_total, quantity
		FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Total, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresOrderStore) getMeta(ctx context.Context, orderID string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT meta_key, meta_value
		FROM order_meta WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}
