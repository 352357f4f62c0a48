// Package location provides the Location catalog.
// Locations are the stock rooms, shops, and vans where counts happen.
package location

import (
	"context"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/entity"
)

// LocationType defines the type of location.
type LocationType string

const (
	TypeStockRoom LocationType = "stock_room"
	TypeShopFloor LocationType = "shop_floor"
	TypeVan       LocationType = "van"
	TypeTransit   LocationType = "transit"
)

// Location represents a place that holds stock.
type Location struct {
	entity.Catalog

	// Type defines the location category
	Type LocationType `db:"type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates if the location is operational
	IsActive bool `db:"is_active" json:"isActive"`

	// IsDefault indicates if this is the default location
	IsDefault bool `db:"is_default" json:"isDefault"`

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewLocation creates a new Location with required fields.
func NewLocation(code, name string, locType LocationType) *Location {
	return &Location{
		Catalog:  entity.NewCatalog(code, name),
		Type:     locType,
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (l *Location) Validate(ctx context.Context) error {
	if err := l.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidLocationType(l.Type) {
		return apperror.NewValidation("invalid location type").
			WithDetail("field", "type").
			WithDetail("value", string(l.Type))
	}

	return nil
}

// CanBeCounted returns true if a count session may target this location.
func (l *Location) CanBeCounted() bool {
	return l.IsActive && !l.DeletionMark
}

func isValidLocationType(t LocationType) bool {
	switch t {
	case TypeStockRoom, TypeShopFloor, TypeVan, TypeTransit:
		return true
	}
	return false
}
