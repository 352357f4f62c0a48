// Package stock provides the stock accumulation register.
package stock

import (
	"context"
	"time"

	"stocktake/internal/core/entity"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
)

// Repository defines operations for the stock register.
type Repository interface {
	// Movement operations

	// CreateMovements batch inserts movements and folds them into the
	// balance table in the same transaction
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// DeleteMovementsByRecorder removes all movements for a document
	// version. Used during unposting or re-posting.
	DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID, beforeVersion int) error

	// GetMovementsByRecorder retrieves all movements for a document
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error)

	// Balance operations

	// GetBalance returns current balance for location+product.
	// A pair with no movements yet reads as a zero balance, not an error.
	GetBalance(ctx context.Context, locationID, productID id.ID) (entity.StockBalance, error)

	// GetBalanceForUpdate returns balance with row lock for stock control
	GetBalanceForUpdate(ctx context.Context, locationID, productID id.ID) (entity.StockBalance, error)

	// SetBalance overwrites the stored balance for location+product.
	// Used by baseline-style documents that declare absolute stock.
	SetBalance(ctx context.Context, locationID, productID id.ID, qty units.CartonUnits) error

	// GetBalancesByLocation returns all non-zero balances for a location
	GetBalancesByLocation(ctx context.Context, locationID id.ID, filter BalanceFilter) ([]entity.StockBalance, error)

	// GetBalancesByProduct returns balances across all locations for a product
	GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error)

	// Reporting

	// GetMovementHistory returns movement history for a product
	GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error)

	// Maintenance

	// RecalculateBalances rebuilds the balance table from movements.
	// Nil IDs mean "all".
	RecalculateBalances(ctx context.Context, locationID, productID *id.ID) error
}

// BalanceFilter for filtering balance queries.
type BalanceFilter struct {
	ProductIDs  []id.ID
	ExcludeZero bool
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	LocationID *id.ID
	RecordType *entity.RecordType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}
