package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/shop-reports/internal/models"
	"github.com/shopspring/decimal"
)

// InMemoryOrderStore implements OrderSource in memory.  Not durable;
// intended for demonstration and testing, mirroring how a real order
// system would answer the same queries.
type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{orders: make(map[string]*models.Order)}
}

// AddOrder stores an order, assigning an id when absent, and returns the id.
func (s *InMemoryOrderStore) AddOrder(o *models.Order) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	s.orders[o.ID] = o
	return o.ID
}

func (s *InMemoryOrderStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) ListOrders(ctx context.Context, statuses []string, createdAfter time.Time) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Order
	for _, o := range s.orders {
		if !statusIn(o.Status, statuses) {
			continue
		}
		if o.CreatedAt.Before(createdAfter) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	return out, nil
}

func (s *InMemoryOrderStore) FirstOrder(ctx context.Context, ref CustomerRef, statuses []string, excludeID string) (*models.Order, error) {
	if ref.IsZero() {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var first *models.Order
	for _, o := range s.orders {
		if o.ID == excludeID || !statusIn(o.Status, statuses) {
			continue
		}
		if ref.CustomerID != 0 {
			if o.CustomerID != ref.CustomerID {
				continue
			}
		} else if !strings.EqualFold(o.BillingEmail, ref.Email) {
			continue
		}
		if first == nil || o.CreatedAt.Before(first.CreatedAt) ||
			(o.CreatedAt.Equal(first.CreatedAt) && o.ID < first.ID) {
			first = o
		}
	}
	if first == nil {
		return nil, nil
	}
	return copyOrder(first), nil
}

func (s *InMemoryOrderStore) SetOrderMeta(ctx context.Context, orderID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata[key] = value
	return nil
}

func statusIn(status string, statuses []string) bool {
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	c.Metadata = make(map[string]string, len(o.Metadata))
	for k, v := range o.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

// InMemoryAggregateStore implements AggregateStore with mutex-guarded
// maps.  Every merge runs under the lock, so per-key merges are atomic
// read-modify-writes just like the SQL upserts.
type InMemoryAggregateStore struct {
	mu       sync.RWMutex
	daily    map[string]*models.DailySummary
	products map[string]*models.ProductDaily
	channels map[string]*models.ChannelDaily
	cohorts  map[string]*models.CohortMonthly
}

func NewInMemoryAggregateStore() *InMemoryAggregateStore {
	return &InMemoryAggregateStore{
		daily:    make(map[string]*models.DailySummary),
		products: make(map[string]*models.ProductDaily),
		channels: make(map[string]*models.ChannelDaily),
		cohorts:  make(map[string]*models.CohortMonthly),
	}
}

func productKey(date string, productID int64) string {
	return fmt.Sprintf("%s|%d", date, productID)
}

func channelKey(date, source, medium, campaign string) string {
	return fmt.Sprintf("%s|%s|%s|%s", date, source, medium, campaign)
}

func (s *InMemoryAggregateStore) MergeDaily(ctx context.Context, row *models.DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.daily[row.ReportDate]
	if !ok {
		c := *row
		s.daily[row.ReportDate] = &c
		return nil
	}
	cur.Revenue = cur.Revenue.Add(row.Revenue)
	cur.OrdersCount += row.OrdersCount
	cur.Refunds = cur.Refunds.Add(row.Refunds)
	cur.NewCustomers += row.NewCustomers
	cur.ReturningCustomers += row.ReturningCustomers
	if cur.OrdersCount > 0 {
		cur.AOV = cur.Revenue.Div(decimal.NewFromInt(cur.OrdersCount))
	} else {
		cur.AOV = decimal.Zero
	}
	return nil
}

func (s *InMemoryAggregateStore) MergeProduct(ctx context.Context, row *models.ProductDaily) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := productKey(row.ReportDate, row.ProductID)
	cur, ok := s.products[key]
	if !ok {
		c := *row
		s.products[key] = &c
		return nil
	}
	cur.Revenue = cur.Revenue.Add(row.Revenue)
	cur.Quantity += row.Quantity
	return nil
}

func (s *InMemoryAggregateStore) MergeChannel(ctx context.Context, row *models.ChannelDaily) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := channelKey(row.ReportDate, row.Source, row.Medium, row.Campaign)
	cur, ok := s.channels[key]
	if !ok {
		c := *row
		s.channels[key] = &c
		return nil
	}
	cur.Revenue = cur.Revenue.Add(row.Revenue)
	cur.OrdersCount += row.OrdersCount
	return nil
}

func (s *InMemoryAggregateStore) ReplaceDaily(ctx context.Context, row *models.DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *row
	s.daily[row.ReportDate] = &c
	return nil
}

func (s *InMemoryAggregateStore) ReplaceProduct(ctx context.Context, row *models.ProductDaily) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *row
	s.products[productKey(row.ReportDate, row.ProductID)] = &c
	return nil
}

func (s *InMemoryAggregateStore) ReplaceChannel(ctx context.Context, row *models.ChannelDaily) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *row
	s.channels[channelKey(row.ReportDate, row.Source, row.Medium, row.Campaign)] = &c
	return nil
}

func (s *InMemoryAggregateStore) ReplaceCohort(ctx context.Context, row *models.CohortMonthly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *row
	s.cohorts[row.CohortMonth] = &c
	return nil
}

func (s *InMemoryAggregateStore) DeleteDailyFrom(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for d := range s.daily {
		if d >= date {
			delete(s.daily, d)
		}
	}
	return nil
}

func (s *InMemoryAggregateStore) DeleteProductFrom(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, row := range s.products {
		if row.ReportDate >= date {
			delete(s.products, key)
		}
	}
	return nil
}

func (s *InMemoryAggregateStore) DeleteChannelFrom(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, row := range s.channels {
		if row.ReportDate >= date {
			delete(s.channels, key)
		}
	}
	return nil
}

func (s *InMemoryAggregateStore) DeleteCohortFrom(ctx context.Context, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for m := range s.cohorts {
		if m >= month {
			delete(s.cohorts, m)
		}
	}
	return nil
}

func (s *InMemoryAggregateStore) OverviewSince(ctx context.Context, date string) (*models.OverviewMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m models.OverviewMetrics
	var aovSum decimal.Decimal
	var days int64
	for _, row := range s.daily {
		if row.ReportDate < date {
			continue
		}
		m.Revenue = m.Revenue.Add(row.Revenue)
		m.OrdersCount += row.OrdersCount
		m.Refunds = m.Refunds.Add(row.Refunds)
		m.NewCustomers += row.NewCustomers
		m.ReturningCustomers += row.ReturningCustomers
		aovSum = aovSum.Add(row.AOV)
		days++
	}
	if days > 0 {
		m.AOV = aovSum.Div(decimal.NewFromInt(days))
	}
	return &m, nil
}

func (s *InMemoryAggregateStore) TopProductsSince(ctx context.Context, date string, limit int) ([]*models.ProductDaily, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[int64]*models.ProductDaily)
	for _, row := range s.products {
		if row.ReportDate < date {
			continue
		}
		agg, ok := byProduct[row.ProductID]
		if !ok {
			agg = &models.ProductDaily{ProductID: row.ProductID}
			byProduct[row.ProductID] = agg
		}
		agg.Revenue = agg.Revenue.Add(row.Revenue)
		agg.Quantity += row.Quantity
	}

	out := make([]*models.ProductDaily, 0, len(byProduct))
	for _, agg := range byProduct {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryAggregateStore) TopChannelsSince(ctx context.Context, date string, limit int) ([]*models.ChannelDaily, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byChannel := make(map[string]*models.ChannelDaily)
	for _, row := range s.channels {
		if row.ReportDate < date {
			continue
		}
		key := channelKey("", row.Source, row.Medium, row.Campaign)
		agg, ok := byChannel[key]
		if !ok {
			agg = &models.ChannelDaily{Source: row.Source, Medium: row.Medium, Campaign: row.Campaign}
			byChannel[key] = agg
		}
		agg.Revenue = agg.Revenue.Add(row.Revenue)
		agg.OrdersCount += row.OrdersCount
	}

	out := make([]*models.ChannelDaily, 0, len(byChannel))
	for _, agg := range byChannel {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return channelKey("", out[i].Source, out[i].Medium, out[i].Campaign) <
			channelKey("", out[j].Source, out[j].Medium, out[j].Campaign)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryAggregateStore) TrendsSince(ctx context.Context, date string) ([]*models.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DailySummary
	for _, row := range s.daily {
		if row.ReportDate < date {
			continue
		}
		c := *row
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportDate < out[j].ReportDate })
	return out, nil
}

func (s *InMemoryAggregateStore) CohortsSince(ctx context.Context, month string) ([]*models.CohortMonthly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.CohortMonthly
	for _, row := range s.cohorts {
		if row.CohortMonth < month {
			continue
		}
		c := *row
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CohortMonth > out[j].CohortMonth })
	return out, nil
}
