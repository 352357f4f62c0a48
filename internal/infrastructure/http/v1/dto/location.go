package dto

import (
	"stocktake/internal/domain/catalogs/location"
)

// CreateLocationRequest for creating locations.
type CreateLocationRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
}

// UpdateLocationRequest for updating locations.
type UpdateLocationRequest struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Address     *string `json:"address"`
	IsActive    *bool   `json:"isActive"`
	Description *string `json:"description"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// LocationResponse contains location fields.
type LocationResponse struct {
	CatalogResponse
	Type        string  `json:"type"`
	Address     *string `json:"address,omitempty"`
	IsActive    bool    `json:"isActive"`
	IsDefault   bool    `json:"isDefault"`
	Description *string `json:"description,omitempty"`
}

// FromLocation creates LocationResponse from domain entity.
func FromLocation(l *location.Location) LocationResponse {
	return LocationResponse{
		CatalogResponse: FromCatalog(l.Catalog),
		Type:            string(l.Type),
		Address:         l.Address,
		IsActive:        l.IsActive,
		IsDefault:       l.IsDefault,
		Description:     l.Description,
	}
}

// ToLocation maps a create request to a new domain entity.
func (r CreateLocationRequest) ToLocation() *location.Location {
	l := location.NewLocation(r.Code, r.Name, location.LocationType(r.Type))
	l.Address = r.Address
	l.Description = r.Description
	return l
}

// ApplyTo maps an update request onto an existing entity.
func (r UpdateLocationRequest) ApplyTo(l *location.Location) *location.Location {
	if r.Code != nil {
		l.Code = *r.Code
	}
	if r.Name != nil {
		l.Name = *r.Name
	}
	if r.Type != nil {
		l.Type = location.LocationType(*r.Type)
	}
	if r.Address != nil {
		l.Address = r.Address
	}
	if r.IsActive != nil {
		l.IsActive = *r.IsActive
	}
	if r.Description != nil {
		l.Description = r.Description
	}
	l.Version = r.Version
	return l
}
