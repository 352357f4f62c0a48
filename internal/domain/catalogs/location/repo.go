package location

import (
	"context"

	"stocktake/internal/core/id"
	"stocktake/internal/domain"
)

// Repository defines the interface for Location persistence.
type Repository interface {
	domain.CatalogRepository[*Location]

	// GetForUpdate retrieves a location with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Location, error)

	// ClearDefault clears the default flag on all locations.
	ClearDefault(ctx context.Context) error
}
