package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/entity"
	"stocktake/internal/core/id"
	"stocktake/internal/domain/catalogs/product"
	"stocktake/internal/domain/registers/stock"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// StockHandler serves read access to the stock register: balances,
// availability, and the movement journal.
type StockHandler struct {
	*BaseHandler
	service  *stock.Service
	products *product.Service
}

// NewStockHandler creates a stock register handler.
func NewStockHandler(base *BaseHandler, service *stock.Service, products *product.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
		products:    products,
	}
}

// LocationStock handles GET /stock/locations/:id - all non-zero balances
// at a location.
func (h *StockHandler) LocationStock(c *gin.Context) {
	ctx := c.Request.Context()

	locationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	balances, err := h.service.GetLocationStock(ctx, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": dto.FromStockBalances(balances)})
}

// Balance handles GET /stock/locations/:id/products/:productId - one
// balance pair. A pair with no movements reads as zero.
func (h *StockHandler) Balance(c *gin.Context) {
	ctx := c.Request.Context()

	locationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	qty, err := h.service.GetBalance(ctx, locationID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"locationId": locationID.String(),
		"productId":  productID.String(),
		"cartons":    qty.Cartons,
		"units":      qty.Units,
	})
}

// Availability handles GET /stock/products/:productId/availability -
// total base units across all locations.
func (h *StockHandler) Availability(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	prod, err := h.products.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	total, err := h.service.GetProductAvailability(ctx, productID, prod.PerCarton())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AvailabilityResponse{
		ProductID:  productID.String(),
		TotalUnits: total,
	})
}

// Movements handles GET /stock/products/:productId/movements - the
// movement journal for a product.
func (h *StockHandler) Movements(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	filter := stock.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if locStr := c.Query("locationId"); locStr != "" {
		locationID, err := id.Parse(locStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId format"))
			return
		}
		filter.LocationID = &locationID
	}

	if typeStr := c.Query("recordType"); typeStr != "" {
		recordType := entity.RecordType(typeStr)
		if recordType != entity.RecordTypeReceipt && recordType != entity.RecordTypeExpense {
			h.Error(c, apperror.NewValidation("unknown record type").
				WithDetail("value", typeStr))
			return
		}
		filter.RecordType = &recordType
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from date, RFC3339 expected"))
			return
		}
		filter.FromDate = &from
	}

	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to date, RFC3339 expected"))
			return
		}
		filter.ToDate = &to
	}

	movements, err := h.service.GetMovementHistory(ctx, productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": dto.FromStockMovements(movements)})
}

// Recalculate handles POST /stock/recalculate - rebuilds balances from
// the movement journal. Maintenance endpoint.
func (h *StockHandler) Recalculate(c *gin.Context) {
	ctx := c.Request.Context()

	var locationID, productID *id.ID

	if locStr := c.Query("locationId"); locStr != "" {
		parsed, err := id.Parse(locStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId format"))
			return
		}
		locationID = &parsed
	}

	if prodStr := c.Query("productId"); prodStr != "" {
		parsed, err := id.Parse(prodStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId format"))
			return
		}
		productID = &parsed
	}

	if err := h.service.RecalculateBalances(ctx, locationID, productID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "balances recalculated")
}
