package stock

import (
	"context"
	"time"
)

// Repository defines persistence for the ledger and projection.
// Writes must run inside the caller's transaction.
type Repository interface {
	// AppendEntry inserts a ledger row and returns it with ID and CreatedAt set.
	AppendEntry(ctx context.Context, e Entry) (Entry, error)

	// ApplyDelta atomically adds delta to the projection row, creating it
	// with delta as initial quantity when absent.
	ApplyDelta(ctx context.Context, productID, storeID, delta int64, at time.Time) (Level, error)

	// SetMinimum sets the alert threshold, creating a zero-quantity row if needed.
	SetMinimum(ctx context.Context, productID, storeID, minimum int64, at time.Time) (Level, error)

	GetLevel(ctx context.Context, productID, storeID int64) (Level, error)
	ListLevels(ctx context.Context, storeID int64) ([]Level, error)

	// ListLowStock returns rows with quantity_available <= minimum_stock,
	// ascending by quantity_available.
	ListLowStock(ctx context.Context, storeID int64) ([]Level, error)

	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)

	// RebuildLevels recomputes quantity_available for the store from the ledger.
	// Minimum thresholds are preserved.
	RebuildLevels(ctx context.Context, storeID int64, at time.Time) error
}

// EntryFilter for movement history queries.
type EntryFilter struct {
	StoreID   int64
	ProductID *int64
	OrderID   *int64
	Limit     int
	Offset    int
}
