package v1

import (
	"github.com/gin-gonic/gin"
)

// ResourceRouteHandler is the read/create surface shared by every resource.
type ResourceRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// RegisterResourceRoutes registers GET "", POST "" and GET "/:id" for a
// resource and returns its group for resource-specific routes.
func RegisterResourceRoutes(rg *gin.RouterGroup, path string, h ResourceRouteHandler) *gin.RouterGroup {
	g := rg.Group(path)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	return g
}
