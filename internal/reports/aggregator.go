package reports

import (
	"context"
	"time"

	"github.com/radiusdt/shop-reports/internal/metrics"
	"github.com/radiusdt/shop-reports/internal/models"
	"github.com/radiusdt/shop-reports/internal/storage"
	"go.uber.org/zap"
)

// Aggregator folds single orders into the daily aggregate tables as
// they transition into a qualifying status.  Each order contributes at
// most once per report date, guarded by a metadata marker on the order
// itself.  Cohort rows are deliberately untouched here; they are
// rebuilt wholesale by the Recomputer.
type Aggregator struct {
	orders  storage.OrderSource
	store   storage.AggregateStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewAggregator constructs an Aggregator over the given source and store.
func NewAggregator(orders storage.OrderSource, store storage.AggregateStore, logger *zap.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{orders: orders, store: store, logger: logger, metrics: m}
}

// Apply folds one order's contribution into the daily, product and
// channel tables.  A missing order is a silent no-op: the event will
// either be redelivered on the next status transition or corrected by
// the next recomputation.  Store failures are returned to the caller
// and leave the idempotency marker unset, so the next recomputation
// repairs any partial contribution.
func (a *Aggregator) Apply(ctx context.Context, orderID string) error {
	o, err := a.orders.GetOrder(ctx, orderID)
	if err != nil {
		a.metrics.RecordApplyFailure("lookup")
		return err
	}
	if o == nil {
		a.logger.Debug("order not found, skipping aggregation", zap.String("order_id", orderID))
		return nil
	}

	reportDate := ReportDate(o, time.Now().UTC())
	if o.Meta(models.MetaAggregatedDate) == reportDate {
		a.metrics.RecordDuplicateSkip()
		a.logger.Debug("order already aggregated",
			zap.String("order_id", o.ID),
			zap.String("report_date", reportDate),
		)
		return nil
	}

	isNew, err := IsNewCustomer(ctx, a.orders, o)
	if err != nil {
		a.metrics.RecordApplyFailure("identity")
		return err
	}

	daily := &models.DailySummary{
		ReportDate:  reportDate,
		Revenue:     o.Total,
		OrdersCount: 1,
		Refunds:     o.TotalRefunded,
		AOV:         o.Total,
	}
	if isNew {
		daily.NewCustomers = 1
	} else {
		daily.ReturningCustomers = 1
	}
	if err := a.store.MergeDaily(ctx, daily); err != nil {
		a.metrics.RecordApplyFailure("daily")
		return err
	}

	for _, item := range o.Items {
		if item.ProductID == 0 {
			continue
		}
		row := &models.ProductDaily{
			ReportDate: reportDate,
			ProductID:  item.ProductID,
			Revenue:    item.Total,
			Quantity:   item.Quantity,
		}
		if err := a.store.MergeProduct(ctx, row); err != nil {
			a.metrics.RecordApplyFailure("product")
			return err
		}
	}

	attr := ResolveAttribution(o)
	channel := &models.ChannelDaily{
		ReportDate:  reportDate,
		Source:      attr.Source,
		Medium:      attr.Medium,
		Campaign:    attr.Campaign,
		Revenue:     o.Total,
		OrdersCount: 1,
	}
	if err := a.store.MergeChannel(ctx, channel); err != nil {
		a.metrics.RecordApplyFailure("channel")
		return err
	}

	// Marker last: a crash before this point leaves the contribution
	// unmarked and the next recomputation rebuilds the window anyway.
	if err := a.orders.SetOrderMeta(ctx, o.ID, models.MetaAggregatedDate, reportDate); err != nil {
		a.metrics.RecordApplyFailure("marker")
		return err
	}

	total, _ := o.Total.Float64()
	a.metrics.RecordOrderApplied(attr.Source, total)
	a.logger.Info("order aggregated",
		zap.String("order_id", o.ID),
		zap.String("report_date", reportDate),
		zap.String("total", o.Total.String()),
		zap.Bool("new_customer", isNew),
	)
	return nil
}
