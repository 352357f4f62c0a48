package dto

import (
	"testing"

	"github.com/shopspring/decimal"

	"stocktake/internal/core/apperror"
	"stocktake/internal/domain/catalogs/product"
)

func TestCreateProductRequestUnitCost(t *testing.T) {
	base := CreateProductRequest{Code: "PR-1", Name: "Cola 330ml", UnitsPerCarton: 12}

	t.Run("valid cost is parsed", func(t *testing.T) {
		req := base
		req.UnitCost = "2.50"
		p, err := req.ToProduct()
		if err != nil {
			t.Fatalf("ToProduct: %v", err)
		}
		if !p.UnitCost.Equal(decimal.RequireFromString("2.50")) {
			t.Errorf("unit cost = %s, want 2.50", p.UnitCost)
		}
	})

	t.Run("empty cost stays zero", func(t *testing.T) {
		p, err := base.ToProduct()
		if err != nil {
			t.Fatalf("ToProduct: %v", err)
		}
		if !p.UnitCost.IsZero() {
			t.Errorf("unit cost = %s, want 0", p.UnitCost)
		}
	})

	t.Run("malformed cost is rejected", func(t *testing.T) {
		req := base
		req.UnitCost = "2,50"
		if _, err := req.ToProduct(); !apperror.IsValidation(err) {
			t.Fatalf("malformed cost error = %v, want VALIDATION_ERROR", err)
		}
	})
}

func TestUpdateProductRequestUnitCost(t *testing.T) {
	existing := product.NewProduct("PR-1", "Cola 330ml", 12)

	t.Run("malformed cost is rejected and leaves the entity alone", func(t *testing.T) {
		bad := "abc"
		req := UpdateProductRequest{UnitCost: &bad, Version: 1}
		if _, err := req.ApplyTo(existing); !apperror.IsValidation(err) {
			t.Fatalf("malformed cost error = %v, want VALIDATION_ERROR", err)
		}
		if !existing.UnitCost.IsZero() {
			t.Errorf("unit cost changed to %s on a rejected update", existing.UnitCost)
		}
	})

	t.Run("valid cost is applied", func(t *testing.T) {
		good := "1.99"
		req := UpdateProductRequest{UnitCost: &good, Version: 1}
		p, err := req.ApplyTo(existing)
		if err != nil {
			t.Fatalf("ApplyTo: %v", err)
		}
		if !p.UnitCost.Equal(decimal.RequireFromString("1.99")) {
			t.Errorf("unit cost = %s, want 1.99", p.UnitCost)
		}
	})
}
