// Package directory exposes the store, supplier and catalog facts the
// procurement workflow consumes. Nothing here is mutated by the engine.
package directory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is a location owning its own catalog, requests and orders.
type Store struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
	// ResponsibleID is the only user allowed to approve the store's requests.
	ResponsibleID *int64 `db:"responsible_id" json:"responsible_id,omitempty"`
}

// IsResponsible reports whether userID is the store's designated approver.
func (s Store) IsResponsible(userID int64) bool {
	return s.ResponsibleID != nil && *s.ResponsibleID == userID
}

// Supplier belongs to exactly one store.
type Supplier struct {
	ID      int64  `db:"id" json:"id"`
	StoreID int64  `db:"store_id" json:"store_id"`
	Name    string `db:"name" json:"name"`
	Email   string `db:"email" json:"email"`
	Phone   string `db:"phone" json:"phone"`
	Address string `db:"address" json:"address"`
}

// Product is a catalog entry. Price is nil when the catalog has no price.
type Product struct {
	ID       int64            `db:"id" json:"id"`
	StoreID  int64            `db:"store_id" json:"store_id"`
	Name     string           `db:"name" json:"name"`
	Price    *decimal.Decimal `db:"price" json:"price,omitempty"`
	Approved bool             `db:"approved" json:"approved"`
}

// Reader resolves directory facts. Missing rows come back as NotFound errors.
type Reader interface {
	GetStore(ctx context.Context, id int64) (Store, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
}
