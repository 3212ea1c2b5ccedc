package handlers

import (
	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/infrastructure/http/v1/dto"
)

// PurchaseRequestHandler serves /purchase-requests.
type PurchaseRequestHandler struct {
	*BaseHandler
	service *request.Service
}

// NewPurchaseRequestHandler creates a new purchase request handler.
func NewPurchaseRequestHandler(base *BaseHandler, service *request.Service) *PurchaseRequestHandler {
	return &PurchaseRequestHandler{BaseHandler: base, service: service}
}

// Create handles POST /purchase-requests
func (h *PurchaseRequestHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequestRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r, err := h.service.Create(c.Request.Context(), req.ToInput(h.ActorID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedID(c, r.ID)
}

// Get handles GET /purchase-requests/:id
func (h *PurchaseRequestHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// List handles GET /purchase-requests?store_id=
func (h *PurchaseRequestHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := request.ListFilter{StoreID: q.StoreID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status := request.Status(q.Status)
		filter.Status = &status
	}

	items, err := h.service.ListByStore(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// Update handles PUT /purchase-requests/:id
func (h *PurchaseRequestHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePurchaseRequestRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r, err := h.service.Edit(c.Request.Context(), id, req.ToInput(h.ActorID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// Delete handles DELETE /purchase-requests/:id
func (h *PurchaseRequestHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Approve handles POST /purchase-requests/:id/approval
func (h *PurchaseRequestHandler) Approve(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ApprovalRequest
	if !h.BindJSON(c, &req) {
		return
	}

	approver := req.ApproverID
	if actor := h.ActorID(c); actor != 0 {
		if approver != 0 && approver != actor {
			h.Error(c, apperror.NewForbidden("approver_id must match the authenticated user").
				WithDetail("approver_id", approver))
			return
		}
		approver = actor
	}
	r, err := h.service.Approve(c.Request.Context(), id, approver, request.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}
