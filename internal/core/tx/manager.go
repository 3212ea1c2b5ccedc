// Package tx provides transaction management abstractions.
// Domain services depend on Manager only; the Postgres and in-memory
// backends provide the implementations.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
//
// RunInTransaction executes fn within a unit of work. If fn returns an error
// every write performed through ctx is rolled back, otherwise all of them are
// committed together. Nested calls reuse the transaction already carried by ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
