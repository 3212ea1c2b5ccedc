package dto

import (
	"github.com/shopspring/decimal"

	"magasin/internal/domain/registers/stock"
)

// MovementRequest is the body of POST /stock/movements.
type MovementRequest struct {
	ProductID     int64            `json:"product_id" binding:"required"`
	StoreID       int64            `json:"store_id" binding:"required"`
	MovementType  string           `json:"movement_type" binding:"required"`
	Quantity      int64            `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   *int64           `json:"reference_id"`
	Notes         string           `json:"notes"`
	PerformedBy   int64            `json:"performed_by"`
}

func (r MovementRequest) ToMovement(actor int64) stock.Movement {
	return stock.Movement{
		ProductID:     r.ProductID,
		StoreID:       r.StoreID,
		MovementType:  stock.MovementType(r.MovementType),
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		Notes:         r.Notes,
		PerformedBy:   orActor(r.PerformedBy, actor),
	}
}

// MinimumStockRequest is the body of PUT /stock/minimum.
type MinimumStockRequest struct {
	ProductID    int64 `json:"product_id" binding:"required"`
	StoreID      int64 `json:"store_id" binding:"required"`
	MinimumStock int64 `json:"minimum_stock"`
}

// MovementsQuery filters GET /stock/movements.
type MovementsQuery struct {
	StoreID   int64  `form:"store_id" binding:"required,min=1"`
	ProductID *int64 `form:"product_id"`
	OrderID   *int64 `form:"order_id"`
	Limit     int    `form:"limit" binding:"min=0,max=500"`
	Offset    int    `form:"offset" binding:"min=0"`
}

func (q MovementsQuery) ToFilter() stock.EntryFilter {
	return stock.EntryFilter{
		StoreID:   q.StoreID,
		ProductID: q.ProductID,
		OrderID:   q.OrderID,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
}

// LevelResponse is one row of the stock projection.
type LevelResponse struct {
	ProductID         int64 `json:"product_id"`
	StoreID           int64 `json:"store_id"`
	QuantityAvailable int64 `json:"quantity_available"`
	MinimumStock      int64 `json:"minimum_stock"`
}

func FromLevels(levels []stock.Level) []LevelResponse {
	out := make([]LevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, LevelResponse{
			ProductID:         l.ProductID,
			StoreID:           l.StoreID,
			QuantityAvailable: l.QuantityAvailable,
			MinimumStock:      l.MinimumStock,
		})
	}
	return out
}
