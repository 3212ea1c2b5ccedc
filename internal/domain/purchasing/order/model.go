// Package order consolidates approved purchase requests into supplier orders
// and processes their reception into stock.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"magasin/internal/domain/purchasing/request"
)

// Status of a purchase order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// receivableStatuses are the only states reception may start from.
var receivableStatuses = []Status{StatusPending, StatusSent, StatusConfirmed}

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusConfirmed, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// CanReceive reports whether goods may be received in this state.
func (s Status) CanReceive() bool {
	for _, r := range receivableStatuses {
		if s == r {
			return true
		}
	}
	return false
}

// CanTransitionTo checks if the status can transition to target.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusSent || target == StatusConfirmed ||
			target == StatusReceived || target == StatusCancelled
	case StatusSent:
		return target == StatusConfirmed || target == StatusReceived || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusReceived || target == StatusCancelled
	}
	return false
}

// PurchaseOrder is a supplier-facing consolidation of approved requests.
// Lines and TotalAmount are frozen at creation.
type PurchaseOrder struct {
	ID               int64           `json:"id"`
	SourceRequestIDs []int64         `json:"source_request_ids"`
	SupplierID       int64           `json:"supplier_id"`
	StoreID          int64           `json:"store_id"`
	OrderNumber      string          `json:"order_number"`
	Lines            []request.Line  `json:"lines"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Notes            string          `json:"notes"`
	Status           Status          `json:"status"`
	EmailSent        bool            `json:"email_sent"`
	SentAt           *time.Time      `json:"sent_at"`
	ReceivedAt       *time.Time      `json:"received_at"`
	CreatedBy        int64           `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// priceOf returns the first known unit price the order carries for productID.
func (o PurchaseOrder) priceOf(productID int64) *decimal.Decimal {
	for _, l := range o.Lines {
		if l.ProductID == productID && l.UnitPrice != nil {
			p := *l.UnitPrice
			return &p
		}
	}
	return nil
}

// ReceivedLine is one line of a reception.
type ReceivedLine struct {
	ProductID        int64            `json:"product_id"`
	ReceivedQuantity int64            `json:"received_quantity"`
	UnitPrice        *decimal.Decimal `json:"unit_price,omitempty"`
}
