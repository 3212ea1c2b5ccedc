package handlers

import (
	"github.com/gin-gonic/gin"

	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/http/v1/dto"
)

// StockHandler serves the stock ledger and projection.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// RecordMovement handles POST /stock/movements
func (h *StockHandler) RecordMovement(c *gin.Context) {
	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	e, err := h.service.RecordMovement(c.Request.Context(), req.ToMovement(h.ActorID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedID(c, e.ID)
}

// Movements handles GET /stock/movements?store_id=&product_id=
func (h *StockHandler) Movements(c *gin.Context) {
	var q dto.MovementsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	entries, err := h.service.History(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}

// SetMinimum handles PUT /stock/minimum
func (h *StockHandler) SetMinimum(c *gin.Context) {
	var req dto.MinimumStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	level, err := h.service.SetMinimumStock(c.Request.Context(), req.ProductID, req.StoreID, req.MinimumStock)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLevels([]stock.Level{level})[0])
}

// LowStock handles GET /stock/low?store_id=
func (h *StockHandler) LowStock(c *gin.Context) {
	var q dto.StoreQuery
	if !h.BindQuery(c, &q) {
		return
	}
	levels, err := h.service.ListLowStock(c.Request.Context(), q.StoreID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLevels(levels))
}

// Levels handles GET /stock/levels?store_id=
func (h *StockHandler) Levels(c *gin.Context) {
	var q dto.StoreQuery
	if !h.BindQuery(c, &q) {
		return
	}
	levels, err := h.service.ListLevels(c.Request.Context(), q.StoreID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLevels(levels))
}

// Rebuild handles POST /stock/rebuild?store_id=
func (h *StockHandler) Rebuild(c *gin.Context) {
	var q dto.StoreQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if err := h.service.Rebuild(c.Request.Context(), q.StoreID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
