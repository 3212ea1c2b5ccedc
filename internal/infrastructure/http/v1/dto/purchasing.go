package dto

import (
	"github.com/shopspring/decimal"

	"magasin/internal/domain/purchasing/order"
	"magasin/internal/domain/purchasing/request"
)

// LineRequest is one requested product.
type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func toLineInputs(lines []LineRequest) []request.LineInput {
	out := make([]request.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, request.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// CreatePurchaseRequestRequest is the body of POST /purchase-requests.
type CreatePurchaseRequestRequest struct {
	StoreID   int64         `json:"store_id" binding:"required"`
	Lines     []LineRequest `json:"lines"`
	Notes     string        `json:"notes"`
	CreatedBy int64         `json:"created_by"`
}

func (r CreatePurchaseRequestRequest) ToInput(actor int64) request.CreateInput {
	return request.CreateInput{
		StoreID:   r.StoreID,
		Lines:     toLineInputs(r.Lines),
		Notes:     r.Notes,
		CreatedBy: orActor(r.CreatedBy, actor),
	}
}

// UpdatePurchaseRequestRequest is the body of PUT /purchase-requests/:id.
type UpdatePurchaseRequestRequest struct {
	Lines    []LineRequest `json:"lines"`
	Notes    string        `json:"notes"`
	EditedBy int64         `json:"edited_by"`
}

func (r UpdatePurchaseRequestRequest) ToInput(actor int64) request.EditInput {
	return request.EditInput{
		Lines:    toLineInputs(r.Lines),
		Notes:    r.Notes,
		EditedBy: orActor(r.EditedBy, actor),
	}
}

// ApprovalRequest is the body of POST /purchase-requests/:id/approval.
type ApprovalRequest struct {
	Status     string `json:"status" binding:"required"`
	ApproverID int64  `json:"approver_id"`
}

// CreateOrderRequest is the body of POST /purchase-orders.
type CreateOrderRequest struct {
	SourceRequestIDs []int64 `json:"source_request_ids"`
	SupplierID       int64   `json:"supplier_id" binding:"required"`
	StoreID          int64   `json:"store_id" binding:"required"`
	Notes            string  `json:"notes"`
	CreatedBy        int64   `json:"created_by"`
}

func (r CreateOrderRequest) ToInput(actor int64) order.CreateInput {
	return order.CreateInput{
		SourceRequestIDs: r.SourceRequestIDs,
		SupplierID:       r.SupplierID,
		StoreID:          r.StoreID,
		Notes:            r.Notes,
		CreatedBy:        orActor(r.CreatedBy, actor),
	}
}

// CreateOrderResponse echoes the allocated order number.
type CreateOrderResponse struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
}

// ReceivedLineRequest is one received product.
type ReceivedLineRequest struct {
	ProductID        int64            `json:"product_id"`
	ReceivedQuantity int64            `json:"received_quantity"`
	UnitPrice        *decimal.Decimal `json:"unit_price"`
}

// OrderStatusRequest is the body of PUT /purchase-orders/:id/status.
type OrderStatusRequest struct {
	Status        string                `json:"status" binding:"required"`
	ReceivedLines []ReceivedLineRequest `json:"received_lines"`
	PerformedBy   int64                 `json:"performed_by"`
}

func (r OrderStatusRequest) ToInput(actor int64) order.StatusInput {
	lines := make([]order.ReceivedLine, 0, len(r.ReceivedLines))
	for _, l := range r.ReceivedLines {
		lines = append(lines, order.ReceivedLine{
			ProductID:        l.ProductID,
			ReceivedQuantity: l.ReceivedQuantity,
			UnitPrice:        l.UnitPrice,
		})
	}
	return order.StatusInput{
		Status:        order.Status(r.Status),
		ReceivedLines: lines,
		PerformedBy:   orActor(r.PerformedBy, actor),
	}
}

// orActor prefers an explicit id from the body over the authenticated user.
func orActor(explicit, actor int64) int64 {
	if explicit != 0 {
		return explicit
	}
	return actor
}
