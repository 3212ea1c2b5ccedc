package order

import (
	"context"
	"time"
)

// Repository persists purchase orders.
type Repository interface {
	// Create inserts o and returns it with ID set. A duplicate order number
	// yields a Conflict error.
	Create(ctx context.Context, o PurchaseOrder) (PurchaseOrder, error)

	GetByID(ctx context.Context, id int64) (PurchaseOrder, error)

	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// CompareAndSetStatus moves the order to `to` only if its current status is
	// one of from. It reports whether a row changed.
	CompareAndSetStatus(ctx context.Context, id int64, from []Status, to Status, at time.Time) (bool, error)

	// MarkEmailSent stamps email_sent and sent_at and advances pending to sent.
	MarkEmailSent(ctx context.Context, id int64, at time.Time) (PurchaseOrder, error)

	ListByStore(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
}

// ListFilter for order listing.
type ListFilter struct {
	StoreID int64
	Status  *Status
	Limit   int
	Offset  int
}
