// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds the request body. On failure the error is registered and false returned.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewInvalidInput("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewInvalidInput("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the gin context and aborts the request.
// middleware.ErrorHandler renders the response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID reads a positive int64 path parameter.
func (h *BaseHandler) ParseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		h.Error(c, apperror.NewInvalidInput("invalid "+name).WithDetail(name, raw))
		return 0, false
	}
	return v, true
}

// ActorID returns the authenticated user id, 0 for anonymous calls.
func (h *BaseHandler) ActorID(c *gin.Context) int64 {
	return appctx.GetUserID(c.Request.Context())
}

// Created sends 201 with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// CreatedID sends 201 with {id}.
func (h *BaseHandler) CreatedID(c *gin.Context, id int64) {
	c.JSON(http.StatusCreated, dto.IDResponse{ID: id})
}

// OK sends 200 with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
