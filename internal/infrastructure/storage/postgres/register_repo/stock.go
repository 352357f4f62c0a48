// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktake/internal/core/entity"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
	"stocktake/internal/domain/registers/stock"
	"stocktake/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

// upsertBalanceSQL folds a signed per-grain delta into the balance row.
const upsertBalanceSQL = `
	INSERT INTO reg_stock_balances (location_id, product_id, cartons, units, last_movement_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (location_id, product_id) DO UPDATE SET
		cartons = reg_stock_balances.cartons + EXCLUDED.cartons,
		units = reg_stock_balances.units + EXCLUDED.units,
		last_movement_at = GREATEST(reg_stock_balances.last_movement_at, EXCLUDED.last_movement_at),
		updated_at = NOW()
`

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var movementCols = []string{
	"line_id", "recorder_id", "recorder_type", "recorder_version",
	"period", "record_type",
	"location_id", "product_id", "cartons", "units", "created_at",
}

// CreateMovements batch inserts movements and folds them into the
// balance table in the same transaction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	tx := r.txm.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("CreateMovements requires transaction context")
	}

	// COPY the journal rows.
	inserter := postgres.NewBatchInserter(r.txm)
	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			m.LineID, m.RecorderID, m.RecorderType, m.RecorderVersion,
			m.Period, m.RecordType,
			m.LocationID, m.ProductID, m.Cartons, m.Units, m.CreatedAt,
		})
	}
	if _, err := inserter.CopyFromSlice(ctx, stockMovementsTable, movementCols, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}

	// Fold signed deltas into balances in one round-trip.
	queries := make([]postgres.BatchQuery, 0, len(movements))
	for _, m := range movements {
		signed := m.SignedQuantity()
		queries = append(queries, postgres.BatchQuery{
			SQL:  upsertBalanceSQL,
			Args: []any{m.LocationID, m.ProductID, signed.Cartons, signed.Units, m.Period},
		})
	}

	executor := postgres.NewBatchExecutor(r.txm)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("fold balances: %w", err)
	}

	return nil
}

// DeleteMovementsByRecorder removes movements for a document version and
// unfolds them from the balance table.
func (r *StockRepo) DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID, beforeVersion int) error {
	tx := r.txm.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("DeleteMovementsByRecorder requires transaction context")
	}

	// Read the doomed movements first so balances can be reversed.
	q := r.builder.Select(movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		Where(squirrel.Lt{"recorder_version": beforeVersion})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	var movements []entity.StockMovement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return fmt.Errorf("select movements: %w", err)
	}

	if len(movements) == 0 {
		return nil
	}

	queries := make([]postgres.BatchQuery, 0, len(movements))
	for _, m := range movements {
		signed := m.SignedQuantity()
		queries = append(queries, postgres.BatchQuery{
			SQL:  upsertBalanceSQL,
			Args: []any{m.LocationID, m.ProductID, -signed.Cartons, -signed.Units, m.Period},
		})
	}

	executor := postgres.NewBatchExecutor(r.txm)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("unfold balances: %w", err)
	}

	del := r.builder.Delete(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		Where(squirrel.Lt{"recorder_version": beforeVersion})

	sql, args, err = del.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}

	return nil
}

// GetMovementsByRecorder retrieves movements for a document.
func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

var balanceCols = []string{
	"location_id", "product_id",
	"cartons", "units", "last_movement_at", "updated_at",
}

// GetBalance returns current balance for location+product.
// A pair with no movements yet reads as a zero balance.
func (r *StockRepo) GetBalance(ctx context.Context, locationID, productID id.ID) (entity.StockBalance, error) {
	var balance entity.StockBalance

	q := r.builder.Select(balanceCols...).
		From(stockBalancesTable).
		Where(squirrel.Eq{
			"location_id": locationID,
			"product_id":  productID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return balance, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.StockBalance{
				LocationID: locationID,
				ProductID:  productID,
			}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// GetBalanceForUpdate returns balance with pessimistic lock.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, locationID, productID id.ID) (entity.StockBalance, error) {
	var balance entity.StockBalance

	sql := `
		SELECT location_id, product_id, cartons, units, last_movement_at, updated_at
		FROM reg_stock_balances
		WHERE location_id = $1 AND product_id = $2
		FOR UPDATE
	`

	err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &balance, sql, locationID, productID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return entity.StockBalance{
				LocationID: locationID,
				ProductID:  productID,
			}, nil
		}
		return balance, fmt.Errorf("get balance for update: %w", err)
	}

	return balance, nil
}

// SetBalance overwrites the stored balance for location+product.
// Used by baseline records that declare counted stock as absolute truth.
func (r *StockRepo) SetBalance(ctx context.Context, locationID, productID id.ID, qty units.CartonUnits) error {
	sql := `
		INSERT INTO reg_stock_balances (location_id, product_id, cartons, units, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (location_id, product_id) DO UPDATE SET
			cartons = EXCLUDED.cartons,
			units = EXCLUDED.units,
			last_movement_at = NOW(),
			updated_at = NOW()
	`

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, locationID, productID, qty.Cartons, qty.Units); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	return nil
}

// GetBalancesByLocation returns balances for a location.
func (r *StockRepo) GetBalancesByLocation(ctx context.Context, locationID id.ID, filter stock.BalanceFilter) ([]entity.StockBalance, error) {
	q := r.builder.Select(balanceCols...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"location_id": locationID})

	if filter.ExcludeZero {
		q = q.Where("(cartons <> 0 OR units <> 0)")
	}

	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductIDs})
	}

	q = q.OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	return balances, nil
}

// GetBalancesByProduct returns balances for a product across locations.
func (r *StockRepo) GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error) {
	q := r.builder.Select(balanceCols...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where("(cartons <> 0 OR units <> 0)").
		OrderBy("location_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	return balances, nil
}

// GetMovementHistory returns movement history for a product.
func (r *StockRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID})

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}

	if filter.RecordType != nil {
		q = q.Where(squirrel.Eq{"record_type": *filter.RecordType})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"period": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"period": *filter.ToDate})
	}

	q = q.OrderBy("period DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	return movements, nil
}

// RecalculateBalances rebuilds the balance table from the movement
// journal. Baseline corrections applied via SetBalance are lost; the
// journal is the source of truth for this rebuild.
func (r *StockRepo) RecalculateBalances(ctx context.Context, locationID, productID *id.ID) error {
	querier := r.txm.GetQuerier(ctx)

	where := ""
	args := []any{}
	argN := 1
	if locationID != nil {
		where += fmt.Sprintf(" AND location_id = $%d", argN)
		args = append(args, *locationID)
		argN++
	}
	if productID != nil {
		where += fmt.Sprintf(" AND product_id = $%d", argN)
		args = append(args, *productID)
		argN++
	}

	deleteSQL := "DELETE FROM " + stockBalancesTable + " WHERE TRUE" + where
	if _, err := querier.Exec(ctx, deleteSQL, args...); err != nil {
		return fmt.Errorf("clear balances: %w", err)
	}

	rebuildSQL := fmt.Sprintf(`
		INSERT INTO %s (location_id, product_id, cartons, units, last_movement_at, updated_at)
		SELECT
			location_id,
			product_id,
			SUM(CASE WHEN record_type = 'receipt' THEN cartons ELSE -cartons END),
			SUM(CASE WHEN record_type = 'receipt' THEN units ELSE -units END),
			MAX(period),
			NOW()
		FROM %s
		WHERE TRUE%s
		GROUP BY location_id, product_id
	`, stockBalancesTable, stockMovementsTable, where)

	if _, err := querier.Exec(ctx, rebuildSQL, args...); err != nil {
		return fmt.Errorf("rebuild balances: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
