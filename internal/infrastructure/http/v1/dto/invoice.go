package dto

import (
	"github.com/shopspring/decimal"

	"magasin/internal/domain/invoice"
)

// CreateInvoiceRequest is the body of POST /invoices.
type CreateInvoiceRequest struct {
	OrderID   int64            `json:"order_id" binding:"required"`
	StoreID   int64            `json:"store_id"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
	CreatedBy int64            `json:"created_by"`
}

func (r CreateInvoiceRequest) ToInput(actor int64) invoice.CreateInput {
	return invoice.CreateInput{
		OrderID:   r.OrderID,
		StoreID:   r.StoreID,
		TaxRate:   r.TaxRate,
		CreatedBy: orActor(r.CreatedBy, actor),
	}
}

// CreateInvoiceResponse summarises the issued invoice.
type CreateInvoiceResponse struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
}

// InvoiceStatusRequest is the body of PUT /invoices/:id/status.
type InvoiceStatusRequest struct {
	Status      string `json:"status" binding:"required"`
	PerformedBy int64  `json:"performed_by"`
}
