package handlers

import (
	"github.com/gin-gonic/gin"

	"magasin/internal/domain/invoice"
	"magasin/internal/domain/purchasing/order"
	"magasin/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler serves /purchase-orders.
type PurchaseOrderHandler struct {
	*BaseHandler
	service  *order.Service
	invoices *invoice.Service
}

// NewPurchaseOrderHandler creates a new purchase order handler.
func NewPurchaseOrderHandler(base *BaseHandler, service *order.Service, invoices *invoice.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, service: service, invoices: invoices}
}

// Create handles POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.Create(c.Request.Context(), req.ToInput(h.ActorID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.CreateOrderResponse{ID: o.ID, OrderNumber: o.OrderNumber})
}

// Get handles GET /purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// List handles GET /purchase-orders?store_id=
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := order.ListFilter{StoreID: q.StoreID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status := order.Status(q.Status)
		filter.Status = &status
	}

	items, err := h.service.ListByStore(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// UpdateStatus handles PUT /purchase-orders/:id/status. Moving to received
// records the reception into stock.
func (h *PurchaseOrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.OrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.UpdateStatus(c.Request.Context(), id, req.ToInput(h.ActorID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// SendEmail handles POST /purchase-orders/:id/send-email
func (h *PurchaseOrderHandler) SendEmail(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.SendEmail(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Invoice handles GET /purchase-orders/:id/invoice
func (h *PurchaseOrderHandler) Invoice(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.GetByOrder(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}
