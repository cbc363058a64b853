package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrCashier      = attribute.Key("cashier")
	AttrCustomerKind = attribute.Key("customer_kind")
	AttrReason       = attribute.Key("reason")
	AttrCollection   = attribute.Key("collection")
)

// SaleDurationBuckets are bucket boundaries for sale processing time (seconds)
var SaleDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// ErrMeterNil is returned by NewSaleMetrics for a nil meter
var ErrMeterNil = errors.New("telemetry: meter is required")

// SaleMetrics records point-of-sale activity. A nil *SaleMetrics records
// nothing.
type SaleMetrics struct {
	completed     metric.Int64Counter
	amount        metric.Int64Counter
	rejected      metric.Int64Counter
	persistFailed metric.Int64Counter
	duration      metric.Float64Histogram
	lowStock      metric.Int64Gauge
}

// NewSaleMetrics registers the sale instruments on meter
func NewSaleMetrics(meter metric.Meter) (*SaleMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	sm := &SaleMetrics{}
	counters := []struct {
		dst                     *metric.Int64Counter
		name, description, unit string
	}{
		{&sm.completed, "pos_sale_completed_total", "Total number of completed sales", "{sales}"},
		{&sm.amount, "pos_sale_amount_total", "Total amount charged in cents", "{cents}"},
		{&sm.rejected, "pos_sale_rejected_total", "Total number of sales rejected before recording", "{sales}"},
		{&sm.persistFailed, "pos_persist_failed_total", "Total number of failed collection saves", "{saves}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	sm.duration, err = meter.Float64Histogram("pos_sale_duration_seconds",
		metric.WithDescription("Time spent processing a sale"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(SaleDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram pos_sale_duration_seconds: %w", err)
	}

	sm.lowStock, err = meter.Int64Gauge("pos_inventory_low_stock_items",
		metric.WithDescription("Number of items at or below the low stock threshold"),
		metric.WithUnit("{items}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gauge pos_inventory_low_stock_items: %w", err)
	}

	return sm, nil
}

// NewGlobalSaleMetrics registers the instruments on the global meter
// provider. It returns nil, which records nothing, if registration fails.
func NewGlobalSaleMetrics() *SaleMetrics {
	sm, err := NewSaleMetrics(otel.GetMeterProvider().Meter(TracerName))
	if err != nil {
		return nil
	}
	return sm
}

// RecordSaleCompleted counts a recorded sale and its amount
func (sm *SaleMetrics) RecordSaleCompleted(ctx context.Context, cashier string, walkIn bool, amount decimal.Decimal, took time.Duration) {
	if sm == nil {
		return
	}
	kind := "registered"
	if walkIn {
		kind = "walk_in"
	}
	sm.completed.Add(ctx, 1, metric.WithAttributes(AttrCashier.String(cashier), AttrCustomerKind.String(kind)))
	sm.amount.Add(ctx, amount.Shift(2).Round(0).IntPart(), metric.WithAttributes(AttrCashier.String(cashier)))
	sm.duration.Record(ctx, took.Seconds())
}

// RecordSaleRejected counts a sale refused during validation
func (sm *SaleMetrics) RecordSaleRejected(ctx context.Context, reason string) {
	if sm == nil {
		return
	}
	sm.rejected.Add(ctx, 1, metric.WithAttributes(AttrReason.String(reason)))
}

// RecordPersistFailed counts a failed save of collection
func (sm *SaleMetrics) RecordPersistFailed(ctx context.Context, collection string) {
	if sm == nil {
		return
	}
	sm.persistFailed.Add(ctx, 1, metric.WithAttributes(AttrCollection.String(collection)))
}

// RecordLowStockCount sets the low stock gauge
func (sm *SaleMetrics) RecordLowStockCount(ctx context.Context, count int) {
	if sm == nil {
		return
	}
	sm.lowStock.Record(ctx, int64(count))
}
