package dto

import (
	"github.com/shopspring/decimal"

	"stocktake/internal/core/apperror"
	"stocktake/internal/domain/catalogs/product"
)

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Code           string  `json:"code"`
	Name           string  `json:"name" binding:"required"`
	Barcode        *string `json:"barcode"`
	UnitsPerCarton int64   `json:"unitsPerCarton"`
	MinStockUnits  int64   `json:"minStockUnits"`
	UnitCost       string  `json:"unitCost"`
	Description    *string `json:"description"`
}

// UpdateProductRequest for updating products.
type UpdateProductRequest struct {
	Code           *string `json:"code"`
	Name           *string `json:"name"`
	Barcode        *string `json:"barcode"`
	UnitsPerCarton *int64  `json:"unitsPerCarton"`
	MinStockUnits  *int64  `json:"minStockUnits"`
	UnitCost       *string `json:"unitCost"`
	IsActive       *bool   `json:"isActive"`
	Description    *string `json:"description"`
	Version        int     `json:"version" binding:"required,min=1"`
}

// ProductResponse contains product fields.
type ProductResponse struct {
	CatalogResponse
	Barcode        *string `json:"barcode,omitempty"`
	UnitsPerCarton int64   `json:"unitsPerCarton"`
	MinStockUnits  int64   `json:"minStockUnits"`
	UnitCost       string  `json:"unitCost"`
	IsActive       bool    `json:"isActive"`
	Description    *string `json:"description,omitempty"`
}

// FromProduct creates ProductResponse from domain entity.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		Barcode:         p.Barcode,
		UnitsPerCarton:  p.UnitsPerCarton,
		MinStockUnits:   p.MinStockUnits,
		UnitCost:        p.UnitCost.String(),
		IsActive:        p.IsActive,
		Description:     p.Description,
	}
}

// ToProduct maps a create request to a new domain entity.
func (r CreateProductRequest) ToProduct() (*product.Product, error) {
	p := product.NewProduct(r.Code, r.Name, r.UnitsPerCarton)
	p.Barcode = r.Barcode
	p.MinStockUnits = r.MinStockUnits
	p.Description = r.Description

	if r.UnitCost != "" {
		cost, err := parseUnitCost(r.UnitCost)
		if err != nil {
			return nil, err
		}
		p.UnitCost = cost
	}

	return p, nil
}

// ApplyTo maps an update request onto an existing entity.
func (r UpdateProductRequest) ApplyTo(p *product.Product) (*product.Product, error) {
	if r.Code != nil {
		p.Code = *r.Code
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Barcode != nil {
		p.Barcode = r.Barcode
	}
	if r.UnitsPerCarton != nil {
		p.UnitsPerCarton = *r.UnitsPerCarton
	}
	if r.MinStockUnits != nil {
		p.MinStockUnits = *r.MinStockUnits
	}
	if r.UnitCost != nil {
		cost, err := parseUnitCost(*r.UnitCost)
		if err != nil {
			return nil, err
		}
		p.UnitCost = cost
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	p.Version = r.Version
	return p, nil
}

// parseUnitCost rejects malformed cost strings instead of defaulting
// them to zero.
func parseUnitCost(s string) (decimal.Decimal, error) {
	cost, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("invalid unit cost format").
			WithDetail("field", "unitCost").
			WithDetail("value", s)
	}
	return cost, nil
}
