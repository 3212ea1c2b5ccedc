package invoice

import (
	"context"
	"time"
)

// Repository persists invoices.
type Repository interface {
	// Create inserts inv. A second invoice for the same order, or a reused
	// invoice number, yields a Conflict error.
	Create(ctx context.Context, inv Invoice) (Invoice, error)

	GetByID(ctx context.Context, id int64) (Invoice, error)
	GetByOrder(ctx context.Context, orderID int64) (Invoice, error)

	UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) (Invoice, error)

	ListByStore(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// ListFilter for invoice listing.
type ListFilter struct {
	StoreID int64
	Status  *Status
	Limit   int
	Offset  int
}
