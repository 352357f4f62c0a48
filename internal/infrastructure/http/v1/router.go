package v1

import (
	"github.com/gin-gonic/gin"

	"stocktake/internal/core/numerator"
	"stocktake/internal/domain/catalogs/location"
	"stocktake/internal/domain/catalogs/product"
	"stocktake/internal/domain/counting"
	"stocktake/internal/domain/reconciliation"
	"stocktake/internal/domain/registers/stock"
	"stocktake/internal/infrastructure/http/v1/handlers"
	"stocktake/internal/infrastructure/http/v1/middleware"
	"stocktake/internal/infrastructure/storage/postgres"
	"stocktake/internal/infrastructure/storage/postgres/catalog_repo"
	"stocktake/internal/infrastructure/storage/postgres/document_repo"
	"stocktake/internal/infrastructure/storage/postgres/register_repo"
	"stocktake/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager manages database transactions
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// Numerator for document number generation
	Numerator numerator.Generator

	// Drafts persists counting session snapshots
	Drafts counting.DraftStore

	// Reviews holds compiled discrepancy review rules (may be nil)
	Reviews *reconciliation.ReviewSet

	// RebaselineOnEdit refreshes book snapshots when a pending record is
	// edited. Off by default: an edit corrects the written count, not the
	// moment the shelf was looked at.
	RebaselineOnEdit bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no identity required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1 - the gateway has already authenticated the caller; Identity
	// just lifts the resolved headers into the request context.
	api := router.Group("/api/v1")
	api.Use(middleware.Identity())

	baseHandler := handlers.NewBaseHandler()

	// --- Shared domain wiring ---

	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	productService := product.NewService(productRepo, cfg.TxManager, cfg.Numerator)

	locationRepo := catalog_repo.NewLocationRepo(cfg.TxManager)
	locationService := location.NewService(locationRepo, cfg.TxManager, cfg.Numerator)

	stockRepo := register_repo.NewStockRepo(cfg.TxManager)
	stockService := stock.NewService(stockRepo)

	reconRepo := document_repo.NewReconciliationRepo(cfg.TxManager)
	builder := reconciliation.NewBuilder(productService, stockService, cfg.RebaselineOnEdit)
	reconService := reconciliation.NewService(reconRepo, builder, stockService, cfg.Numerator, cfg.TxManager, cfg.Reviews)

	sessionManager := counting.NewManager(productService, reconService, cfg.Drafts, nil)

	// --- Catalogs ---

	catalogs := api.Group("/catalog")
	{
		productHandler := handlers.NewProductHandler(baseHandler, productService)
		products := catalogs.Group("/products")
		RegisterCatalogRoutes(products, productHandler)
		products.GET("/barcode/:barcode", productHandler.GetByBarcode)
		products.GET("/low-stock", productHandler.LowStock)

		locationHandler := handlers.NewLocationHandler(baseHandler, locationService)
		locations := catalogs.Group("/locations")
		RegisterCatalogRoutes(locations, locationHandler)
		locations.POST("/:id/default", locationHandler.SetDefault)
	}

	// --- Reconciliation records ---

	{
		reconHandler := handlers.NewReconciliationHandler(baseHandler, reconService, sessionManager)
		recons := api.Group("/reconciliations")
		recons.GET("", reconHandler.List)
		recons.POST("", reconHandler.Create)
		recons.GET("/:id", reconHandler.Get)
		recons.PUT("/:id", reconHandler.Update)
		recons.DELETE("/:id", reconHandler.Delete)
		recons.POST("/:id/confirm", reconHandler.Confirm)
	}

	// --- Counting sessions ---

	{
		countingHandler := handlers.NewCountingHandler(baseHandler, sessionManager)
		sessions := api.Group("/counting/sessions")
		sessions.POST("", countingHandler.Open)
		sessions.GET("/:key", countingHandler.Get)
		sessions.DELETE("/:key", countingHandler.Close)
		sessions.POST("/:key/scan", countingHandler.Scan)
		sessions.PUT("/:key/quantity", countingHandler.SetQuantity)
		sessions.DELETE("/:key/products/:productId", countingHandler.RemoveProduct)
		sessions.POST("/:key/draft", countingHandler.SaveDraft)
		sessions.DELETE("/:key/draft", countingHandler.DiscardDraft)
		sessions.POST("/:key/submit", countingHandler.Submit)
	}

	// --- Stock register ---

	{
		stockHandler := handlers.NewStockHandler(baseHandler, stockService, productService)
		stockGroup := api.Group("/stock")
		stockGroup.GET("/locations/:id", stockHandler.LocationStock)
		stockGroup.GET("/locations/:id/products/:productId", stockHandler.Balance)
		stockGroup.GET("/products/:productId/availability", stockHandler.Availability)
		stockGroup.GET("/products/:productId/movements", stockHandler.Movements)
		stockGroup.POST("/recalculate", stockHandler.Recalculate)
	}

	return router
}
