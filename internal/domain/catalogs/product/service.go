package product

import (
	"context"
	"fmt"
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/numerator"
	"stocktake/internal/core/tx"
	"stocktake/internal/domain"
)

// Service provides business logic for the Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Product service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkBarcodeUnique)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, item *Product) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PR"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}

	return s.checkBarcodeUnique(ctx, item)
}

// checkBarcodeUnique rejects a barcode already used by another product.
func (s *Service) checkBarcodeUnique(ctx context.Context, item *Product) error {
	if item.Barcode == nil || *item.Barcode == "" {
		return nil
	}

	existing, err := s.repo.FindByBarcode(ctx, *item.Barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != item.ID {
		return apperror.NewConflict("product with this barcode already exists").
			WithDetail("barcode", *item.Barcode)
	}
	return nil
}

// --- Entity-specific methods ---

// FindByBarcode retrieves a product by barcode.
// Returns NotFound for unknown barcodes; scan flows surface that per item
// without aborting the whole count.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	if barcode == "" {
		return nil, apperror.NewValidation("barcode is required").
			WithDetail("field", "barcode")
	}
	return s.repo.FindByBarcode(ctx, barcode)
}

// FindLowStock retrieves products with stock below minimum.
func (s *Service) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.FindLowStock(ctx, filter)
}

// GetForUpdate retrieves a product with row lock.
func (s *Service) GetForUpdate(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetForUpdate(ctx, productID)
}
