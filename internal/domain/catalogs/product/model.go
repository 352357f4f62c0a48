// Package product provides the Product catalog.
// Products are the items counted and reconciled on stock locations.
package product

import (
	"context"

	"github.com/shopspring/decimal"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/entity"
	"stocktake/internal/core/units"
)

// Product represents a stocked item.
type Product struct {
	entity.Catalog

	// Barcode is the scannable item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// UnitsPerCarton is how many base units one carton holds.
	// Zero means the product is not packed in cartons; quantity math
	// treats it as 1.
	UnitsPerCarton int64 `db:"units_per_carton" json:"unitsPerCarton"`

	// MinStockUnits is the low-stock threshold in base units
	MinStockUnits int64 `db:"min_stock_units" json:"minStockUnits"`

	// UnitCost is the cost of one base unit (for shrinkage valuation)
	UnitCost decimal.Decimal `db:"unit_cost" json:"unitCost"`

	// IsActive indicates the product can appear in new counts
	IsActive bool `db:"is_active" json:"isActive"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, unitsPerCarton int64) *Product {
	return &Product{
		Catalog:        entity.NewCatalog(code, name),
		UnitsPerCarton: unitsPerCarton,
		UnitCost:       decimal.Zero,
		IsActive:       true,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.UnitsPerCarton < 0 {
		return apperror.NewValidation("units per carton cannot be negative").
			WithDetail("field", "unitsPerCarton")
	}

	if p.MinStockUnits < 0 {
		return apperror.NewValidation("minimum stock cannot be negative").
			WithDetail("field", "minStockUnits")
	}

	if p.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}

	return nil
}

// PerCarton returns the effective units-per-carton for quantity math.
func (p *Product) PerCarton() int64 {
	return units.PerCarton(p.UnitsPerCarton)
}
