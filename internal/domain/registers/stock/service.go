// Package stock provides the stock accumulation register service.
package stock

import (
	"context"
	"fmt"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/entity"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
	"stocktake/pkg/logger"
)

// Service provides business operations for the stock register.
// Transactions are managed by the caller (the posting flow).
type Service struct {
	repo Repository
}

// NewService creates a new stock register service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// RecordMovements records stock movements from a document posting.
// Called within the posting transaction.
func (s *Service) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	for i, m := range movements {
		if m.Cartons < 0 || m.Units < 0 {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantities must be non-negative, direction comes from record type", i))
		}
		if m.Cartons == 0 && m.Units == 0 {
			return apperror.NewValidation(fmt.Sprintf("movement %d: empty movement", i))
		}
		if id.IsNil(m.RecorderID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: recorder_id is required", i))
		}
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}

	logger.Info(ctx, "recorded stock movements",
		"count", len(movements),
		"recorder_id", movements[0].RecorderID,
	)

	return nil
}

// ReverseMovements removes movements for a document (used during unposting).
func (s *Service) ReverseMovements(ctx context.Context, recorderID id.ID, beforeVersion int) error {
	if err := s.repo.DeleteMovementsByRecorder(ctx, recorderID, beforeVersion); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}

	logger.Info(ctx, "reversed stock movements",
		"recorder_id", recorderID,
		"before_version", beforeVersion,
	)

	return nil
}

// GetBalance returns the current book quantity for location+product.
func (s *Service) GetBalance(ctx context.Context, locationID, productID id.ID) (units.CartonUnits, error) {
	balance, err := s.repo.GetBalance(ctx, locationID, productID)
	if err != nil {
		return units.CartonUnits{}, fmt.Errorf("get balance: %w", err)
	}
	return balance.Quantity(), nil
}

// SetBalance overwrites the book quantity for location+product.
// Called within the posting transaction of baseline documents.
func (s *Service) SetBalance(ctx context.Context, locationID, productID id.ID, qty units.CartonUnits) error {
	if qty.Cartons < 0 || qty.Units < 0 {
		return apperror.NewValidation("balance components cannot be negative").
			WithDetail("product_id", productID.String())
	}
	return s.repo.SetBalance(ctx, locationID, productID, qty)
}

// GetProductAvailability returns available base units across locations.
func (s *Service) GetProductAvailability(ctx context.Context, productID id.ID, perCarton int64) (int64, error) {
	balances, err := s.repo.GetBalancesByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("get balances: %w", err)
	}

	var total int64
	for _, b := range balances {
		total += b.Quantity().Total(perCarton)
	}

	return total, nil
}

// GetLocationStock returns all products with stock at a location.
func (s *Service) GetLocationStock(ctx context.Context, locationID id.ID) ([]entity.StockBalance, error) {
	return s.repo.GetBalancesByLocation(ctx, locationID, BalanceFilter{
		ExcludeZero: true,
	})
}

// GetMovementHistory returns journal rows for a product.
func (s *Service) GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error) {
	return s.repo.GetMovementHistory(ctx, productID, filter)
}

// RecalculateBalances rebuilds balances from the movement journal.
// Run by the maintenance worker; also useful after manual data fixes.
func (s *Service) RecalculateBalances(ctx context.Context, locationID, productID *id.ID) error {
	if err := s.repo.RecalculateBalances(ctx, locationID, productID); err != nil {
		return fmt.Errorf("recalculate balances: %w", err)
	}
	logger.Info(ctx, "recalculated stock balances")
	return nil
}
