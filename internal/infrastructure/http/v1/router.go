// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"magasin/internal/domain/invoice"
	"magasin/internal/domain/purchasing/order"
	"magasin/internal/domain/purchasing/request"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/http/v1/handlers"
	"magasin/internal/infrastructure/http/v1/middleware"
	"magasin/pkg/logger"
)

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	// Mode is the gin mode; release when empty.
	Mode   string
	Logger *logger.Logger

	// JWTValidator enables bearer authentication when set. With RequireAuth
	// false, anonymous calls pass and actor ids must come from the body.
	JWTValidator middleware.JWTValidator
	RequireAuth  bool

	DB       handlers.Pinger
	Requests *request.Service
	Orders   *order.Service
	Stock    *stock.Service
	Invoices *invoice.Service
}

// NewRouter creates and configures the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	mode := cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	router := gin.New()

	// Order matters: ErrorHandler wraps Recovery so a recovered panic is rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		if cfg.RequireAuth {
			api.Use(middleware.Auth(cfg.JWTValidator))
		} else {
			api.Use(middleware.OptionalAuth(cfg.JWTValidator))
		}
	}

	base := handlers.NewBaseHandler()
	registerPurchasingRoutes(api, base, cfg)
	registerStockRoutes(api, base, cfg)
	registerInvoiceRoutes(api, base, cfg)

	return router
}

func registerPurchasingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	requests := handlers.NewPurchaseRequestHandler(base, cfg.Requests)
	rq := RegisterResourceRoutes(rg, "/purchase-requests", requests)
	{
		rq.PUT("/:id", requests.Update)
		rq.DELETE("/:id", requests.Delete)
		rq.POST("/:id/approval", requests.Approve)
	}

	orders := handlers.NewPurchaseOrderHandler(base, cfg.Orders, cfg.Invoices)
	po := RegisterResourceRoutes(rg, "/purchase-orders", orders)
	{
		po.PUT("/:id/status", orders.UpdateStatus)
		po.POST("/:id/send-email", orders.SendEmail)
		po.GET("/:id/invoice", orders.Invoice)
	}
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewStockHandler(base, cfg.Stock)
	st := rg.Group("/stock")
	{
		st.POST("/movements", h.RecordMovement)
		st.GET("/movements", h.Movements)
		st.PUT("/minimum", h.SetMinimum)
		st.GET("/low", h.LowStock)
		st.GET("/levels", h.Levels)
		st.POST("/rebuild", h.Rebuild)
	}
}

func registerInvoiceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewInvoiceHandler(base, cfg.Invoices)
	inv := RegisterResourceRoutes(rg, "/invoices", h)
	{
		inv.PUT("/:id/status", h.UpdateStatus)
	}
}
