package handlers

import (
	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/domain/catalogs/location"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// LocationHandler extends the generic catalog handler with the default
// location switch.
type LocationHandler struct {
	*CatalogHandler[*location.Location, dto.CreateLocationRequest, dto.UpdateLocationRequest]
	service *location.Service
}

// NewLocationHandler creates a location handler.
func NewLocationHandler(base *BaseHandler, service *location.Service) *LocationHandler {
	config := CatalogHandlerConfig[
		*location.Location,
		dto.CreateLocationRequest,
		dto.UpdateLocationRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "location",

		MapCreateDTO: func(req dto.CreateLocationRequest) (*location.Location, error) {
			return req.ToLocation(), nil
		},

		MapUpdateDTO: func(req dto.UpdateLocationRequest, existing *location.Location) (*location.Location, error) {
			return req.ApplyTo(existing), nil
		},

		MapToDTO: func(entity *location.Location) any {
			return dto.FromLocation(entity)
		},
	}

	return &LocationHandler{
		CatalogHandler: NewCatalogHandler(base, config),
		service:        service,
	}
}

// SetDefault handles POST /locations/:id/default.
func (h *LocationHandler) SetDefault(c *gin.Context) {
	ctx := c.Request.Context()

	locationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.SetDefault(ctx, locationID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "default location updated")
}
