// Package metrics records business counters through OpenTelemetry.
// With no MeterProvider registered by the host process the global provider is
// a no-op, so recording is always safe.
package metrics

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned by New when no meter is supplied.
var ErrMeterNil = errors.New("metrics: meter cannot be nil")

const instrumentationName = "magasin"

// Business holds the procurement counters. A nil *Business records nothing.
type Business struct {
	stockMovements       metric.Int64Counter
	stockQuantity        metric.Int64Counter
	ordersCreated        metric.Int64Counter
	receptions           metric.Int64Counter
	invoicesCreated      metric.Int64Counter
	notificationFailures metric.Int64Counter
}

// New creates counters on meter.
func New(meter metric.Meter) (*Business, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		b   Business
		err error
	)
	counters := []struct {
		dst         *metric.Int64Counter
		name, descr string
		unit        string
	}{
		{&b.stockMovements, "magasin_stock_movements_total", "Stock ledger entries appended", "{entries}"},
		{&b.stockQuantity, "magasin_stock_quantity_total", "Units moved through the stock ledger", "{units}"},
		{&b.ordersCreated, "magasin_purchase_orders_created_total", "Purchase orders consolidated", "{orders}"},
		{&b.receptions, "magasin_receptions_total", "Purchase orders received into stock", "{orders}"},
		{&b.invoicesCreated, "magasin_invoices_created_total", "Invoices issued", "{invoices}"},
		{&b.notificationFailures, "magasin_notification_failures_total", "Supplier notifications that failed", "{emails}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.descr), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}
	return &b, nil
}

// NewGlobal creates counters on the global MeterProvider.
func NewGlobal() (*Business, error) {
	return New(otel.Meter(instrumentationName))
}

func storeAttr(storeID int64) metric.MeasurementOption {
	return metric.WithAttributes(attribute.Int64("store_id", storeID))
}

// RecordStockMovement counts one ledger entry and its quantity.
func (b *Business) RecordStockMovement(ctx context.Context, storeID int64, movementType string, quantity int64) {
	if b == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.Int64("store_id", storeID),
		attribute.String("movement_type", movementType),
	)
	b.stockMovements.Add(ctx, 1, opt)
	b.stockQuantity.Add(ctx, quantity, opt)
}

// RecordOrderCreated counts a consolidated purchase order.
func (b *Business) RecordOrderCreated(ctx context.Context, storeID int64) {
	if b == nil {
		return
	}
	b.ordersCreated.Add(ctx, 1, storeAttr(storeID))
}

// RecordReception counts a received purchase order.
func (b *Business) RecordReception(ctx context.Context, storeID int64) {
	if b == nil {
		return
	}
	b.receptions.Add(ctx, 1, storeAttr(storeID))
}

// RecordInvoiceCreated counts an issued invoice.
func (b *Business) RecordInvoiceCreated(ctx context.Context, storeID int64) {
	if b == nil {
		return
	}
	b.invoicesCreated.Add(ctx, 1, storeAttr(storeID))
}

// RecordNotificationFailure counts a supplier email that could not be delivered.
func (b *Business) RecordNotificationFailure(ctx context.Context, kind string) {
	if b == nil {
		return
	}
	b.notificationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
