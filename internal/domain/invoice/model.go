// Package invoice issues one invoice per received purchase order.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"magasin/internal/domain/purchasing/request"
)

// Status of an invoice.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Invoice is immutable except for its status.
type Invoice struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	StoreID       int64           `json:"store_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	Snapshot      Snapshot        `json:"snapshot_data"`
	Status        Status          `json:"status"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Snapshot freezes the order, supplier and store facts at issue time.
// Later directory edits never change a historical invoice.
type Snapshot struct {
	Order    OrderSnapshot    `json:"order"`
	Supplier SupplierSnapshot `json:"supplier"`
	Store    StoreSnapshot    `json:"store"`
}

type OrderSnapshot struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	OrderDate   time.Time       `json:"order_date"`
	Lines       []request.Line  `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes,omitempty"`
}

type SupplierSnapshot struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type StoreSnapshot struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}
