// Package stock provides the append-only stock ledger and its current-stock projection.
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType defines movement direction.
type MovementType string

const (
	// MovementIn increases the projection
	MovementIn MovementType = "in"
	// MovementOut decreases the projection
	MovementOut MovementType = "out"
)

// IsValid checks if the movement type is known.
func (t MovementType) IsValid() bool {
	return t == MovementIn || t == MovementOut
}

// Sign returns +1 for in and -1 for out.
func (t MovementType) Sign() int64 {
	if t == MovementOut {
		return -1
	}
	return 1
}

// Entry is one immutable ledger row.
type Entry struct {
	ID            int64            `db:"id" json:"id"`
	ProductID     int64            `db:"product_id" json:"product_id"`
	StoreID       int64            `db:"store_id" json:"store_id"`
	OrderID       *int64           `db:"order_id" json:"order_id,omitempty"`
	MovementType  MovementType     `db:"movement_type" json:"movement_type"`
	Quantity      int64            `db:"quantity" json:"quantity"`
	UnitPrice     *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
	TotalValue    *decimal.Decimal `db:"total_value" json:"total_value,omitempty"`
	ReferenceType string           `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *int64           `db:"reference_id" json:"reference_id,omitempty"`
	Notes         string           `db:"notes" json:"notes,omitempty"`
	CreatedBy     int64            `db:"created_by" json:"created_by"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// SignedQuantity returns quantity with sign based on movement type.
func (e Entry) SignedQuantity() int64 {
	return e.MovementType.Sign() * e.Quantity
}

// Level is the projection row for (product, store).
type Level struct {
	ProductID         int64     `db:"product_id" json:"product_id"`
	StoreID           int64     `db:"store_id" json:"store_id"`
	QuantityAvailable int64     `db:"quantity_available" json:"quantity_available"`
	MinimumStock      int64     `db:"minimum_stock" json:"minimum_stock"`
	LastUpdated       time.Time `db:"last_updated" json:"last_updated"`
}

// IsLow reports whether the level is at or under its alert threshold.
func (l Level) IsLow() bool {
	return l.QuantityAvailable <= l.MinimumStock
}

// Movement is the input of RecordMovement.
type Movement struct {
	ProductID     int64
	StoreID       int64
	MovementType  MovementType
	Quantity      int64
	OrderID       *int64
	UnitPrice     *decimal.Decimal
	ReferenceType string
	ReferenceID   *int64
	Notes         string
	PerformedBy   int64
}
