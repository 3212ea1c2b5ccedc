package request

import (
	"context"
)

// Repository persists purchase requests.
type Repository interface {
	// Create inserts r and returns it with ID set.
	Create(ctx context.Context, r PurchaseRequest) (PurchaseRequest, error)

	GetByID(ctx context.Context, id int64) (PurchaseRequest, error)

	// GetForUpdate loads the request with a row lock. Use inside a transaction.
	GetForUpdate(ctx context.Context, id int64) (PurchaseRequest, error)

	// Update overwrites the mutable columns of r.
	Update(ctx context.Context, r PurchaseRequest) error

	Delete(ctx context.Context, id int64) error

	ListByStore(ctx context.Context, filter ListFilter) ([]PurchaseRequest, error)

	// MarkConsumed stamps consumed_by_order_id when it is still null.
	// A request already consumed yields a Conflict error.
	MarkConsumed(ctx context.Context, id, orderID int64) error
}

// ListFilter for request listing.
type ListFilter struct {
	StoreID int64
	Status  *Status
	Limit   int
	Offset  int
}
