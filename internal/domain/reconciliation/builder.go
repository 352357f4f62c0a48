package reconciliation

import (
	"context"
	"fmt"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
	"stocktake/internal/domain/catalogs/product"
)

// CountInput is one counted product handed to the builder.
type CountInput struct {
	ProductID id.ID
	Counted   units.CartonUnits
}

// BalanceSource reads current book quantities from the stock register.
type BalanceSource interface {
	GetBalance(ctx context.Context, locationID, productID id.ID) (units.CartonUnits, error)
}

// ProductSource resolves counted products.
type ProductSource interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// Builder assembles reconciliation records from counted quantities,
// snapshotting book balances and packaging config as it goes.
type Builder struct {
	products ProductSource
	balances BalanceSource

	// rebaselineOnEdit controls whether Rebuild refreshes the book
	// snapshot of existing lines. Kept off: an edit corrects what the
	// counter wrote down, not when the shelf was looked at, so the
	// comparison baseline must stay what it was at count time.
	rebaselineOnEdit bool
}

// NewBuilder creates a record builder.
func NewBuilder(products ProductSource, balances BalanceSource, rebaselineOnEdit bool) *Builder {
	return &Builder{
		products:         products,
		balances:         balances,
		rebaselineOnEdit: rebaselineOnEdit,
	}
}

// Build creates a new pending record from a finished count.
// The book snapshot for every line is read here, once.
func (b *Builder) Build(ctx context.Context, locationID id.ID, countedBy string, policy Policy, counts []CountInput) (*Record, error) {
	if id.IsNil(locationID) {
		return nil, apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	if countedBy == "" {
		return nil, apperror.NewValidation("counting user is required").
			WithDetail("field", "countedBy")
	}
	if len(counts) == 0 {
		return nil, apperror.NewValidation("record has no counted products").
			WithDetail("field", "counts")
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}

	record := NewRecord(locationID, countedBy, policy)

	for _, c := range counts {
		if c.Counted.Cartons < 0 || c.Counted.Units < 0 {
			return nil, apperror.NewValidation("counted quantities cannot be negative").
				WithDetail("product_id", c.ProductID.String())
		}

		prod, err := b.products.GetByID(ctx, c.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", c.ProductID, err)
		}

		before, err := b.balances.GetBalance(ctx, locationID, c.ProductID)
		if err != nil {
			return nil, fmt.Errorf("snapshot balance for %s: %w", c.ProductID, err)
		}

		record.AddLine(lineProduct(prod), before, c.Counted)
	}

	return record, nil
}

// Rebuild replaces the counts on an existing pending record.
//
// Lines that survive the edit keep their original book snapshot unless
// rebaselineOnEdit is set. Lines for products not previously in the
// record have no old snapshot and are read from the register now.
func (b *Builder) Rebuild(ctx context.Context, record *Record, counts []CountInput) error {
	if err := record.CanModify(); err != nil {
		return err
	}
	if len(counts) == 0 {
		return apperror.NewValidation("record has no counted products").
			WithDetail("field", "counts")
	}

	existing := make(map[id.ID]Line, len(record.Lines))
	for _, line := range record.Lines {
		existing[line.ProductID] = line
	}

	record.Lines = record.Lines[:0]

	for _, c := range counts {
		if c.Counted.Cartons < 0 || c.Counted.Units < 0 {
			return apperror.NewValidation("counted quantities cannot be negative").
				WithDetail("product_id", c.ProductID.String())
		}

		old, known := existing[c.ProductID]
		if known && !b.rebaselineOnEdit {
			record.AddLine(LineProduct{
				ProductID:      c.ProductID,
				Code:           old.ProductCode,
				UnitsPerCarton: old.UnitsPerCarton,
				UnitCost:       old.UnitCost,
			}, old.Before(), c.Counted)
			continue
		}

		prod, err := b.products.GetByID(ctx, c.ProductID)
		if err != nil {
			return fmt.Errorf("resolve product %s: %w", c.ProductID, err)
		}

		before, err := b.balances.GetBalance(ctx, record.LocationID, c.ProductID)
		if err != nil {
			return fmt.Errorf("snapshot balance for %s: %w", c.ProductID, err)
		}

		record.AddLine(lineProduct(prod), before, c.Counted)
	}

	record.Touch()
	return nil
}

// lineProduct snapshots the line-relevant product fields.
func lineProduct(p *product.Product) LineProduct {
	return LineProduct{
		ProductID:      p.ID,
		Code:           p.Code,
		UnitsPerCarton: p.PerCarton(),
		UnitCost:       p.UnitCost,
	}
}
