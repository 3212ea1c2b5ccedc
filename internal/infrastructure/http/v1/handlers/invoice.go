package handlers

import (
	"github.com/gin-gonic/gin"

	"magasin/internal/domain/invoice"
	"magasin/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler serves /invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.Create(c.Request.Context(), req.ToInput(h.ActorID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.CreateInvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		FinalAmount:   inv.FinalAmount,
	})
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// List handles GET /invoices?store_id=
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := invoice.ListFilter{StoreID: q.StoreID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status := invoice.Status(q.Status)
		filter.Status = &status
	}

	items, err := h.service.ListByStore(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// UpdateStatus handles PUT /invoices/:id/status
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.InvoiceStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	performedBy := req.PerformedBy
	if performedBy == 0 {
		performedBy = h.ActorID(c)
	}
	inv, err := h.service.UpdateStatus(c.Request.Context(), id, invoice.Status(req.Status), performedBy)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}
