// Package request implements the purchase request approval workflow.
package request

import (
	"time"

	"github.com/shopspring/decimal"

	"magasin/internal/core/types"
)

// Status of a purchase request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsDecision reports whether s can be the outcome of an approval.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// Line is one requested product. UnitPrice is the catalog price captured at
// creation or edit time, nil when the catalog had none.
type Line struct {
	ProductID int64            `json:"product_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Total is quantity × unit price, nil for unpriced lines.
func (l Line) Total() *decimal.Decimal {
	return types.LineTotalPtr(l.Quantity, l.UnitPrice)
}

// LineInput is a line as submitted by the caller, before price resolution.
type LineInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// PurchaseRequest is an internal wish-list awaiting approval.
type PurchaseRequest struct {
	ID          int64            `json:"id"`
	StoreID     int64            `json:"store_id"`
	Lines       []Line           `json:"lines"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Notes       string           `json:"notes"`
	Status      Status           `json:"status"`
	ApproverID  *int64           `json:"approver_id"`
	ApprovedAt  *time.Time       `json:"approved_at"`
	// ConsumedByOrderID is set once the request has been consolidated into an order.
	ConsumedByOrderID *int64    `json:"consumed_by_order_id"`
	CreatedBy         int64     `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsConsumed reports whether an order already consumed the request.
func (r PurchaseRequest) IsConsumed() bool {
	return r.ConsumedByOrderID != nil
}

// ComputeTotal sums quantity × unit price over priced lines. It returns nil
// when no line is priced, so "unknown" stays distinct from "free".
func ComputeTotal(lines []Line) *decimal.Decimal {
	var (
		total  decimal.Decimal
		priced bool
	)
	for _, l := range lines {
		if t := l.Total(); t != nil {
			total = total.Add(*t)
			priced = true
		}
	}
	if !priced {
		return nil
	}
	return &total
}
