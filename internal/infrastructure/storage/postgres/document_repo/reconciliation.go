package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktake/internal/core/id"
	"stocktake/internal/domain"
	"stocktake/internal/domain/reconciliation"
	"stocktake/internal/infrastructure/storage/postgres"
)

const (
	reconciliationsTable     = "doc_reconciliations"
	reconciliationLinesTable = "doc_reconciliation_lines"
)

// ReconciliationRepo implements reconciliation.Repository.
type ReconciliationRepo struct {
	*BaseDocumentRepo[*reconciliation.Record]
}

// NewReconciliationRepo creates a new reconciliation record repository.
func NewReconciliationRepo(txm *postgres.TxManager) *ReconciliationRepo {
	return &ReconciliationRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*reconciliation.Record](
			txm,
			reconciliationsTable,
			postgres.ExtractDBColumns[reconciliation.Record](),
			func() *reconciliation.Record { return &reconciliation.Record{} },
		),
	}
}

func (r *ReconciliationRepo) GetLines(ctx context.Context, recordID id.ID) ([]reconciliation.Line, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no", "product_id", "product_code",
			"units_per_carton", "unit_cost",
			"before_cartons", "before_units",
			"counted_cartons", "counted_units",
			"delta_cartons", "delta_units", "shrinkage_amount",
			"needs_review", "review_reason",
		).
		From(reconciliationLinesTable).
		Where(squirrel.Eq{"record_id": recordID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []reconciliation.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces the full line set of a record. Lines are rewritten
// wholesale on every edit; they have no version of their own.
func (r *ReconciliationRepo) SaveLines(ctx context.Context, recordID id.ID, lines []reconciliation.Line) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + reconciliationLinesTable + " WHERE record_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, recordID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(reconciliationLinesTable).
		Columns(
			"line_id", "record_id", "line_no", "product_id", "product_code",
			"units_per_carton", "unit_cost",
			"before_cartons", "before_units",
			"counted_cartons", "counted_units",
			"delta_cartons", "delta_units", "shrinkage_amount",
			"needs_review", "review_reason",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, recordID, line.LineNo, line.ProductID, line.ProductCode,
			line.UnitsPerCarton, line.UnitCost,
			line.BeforeCartons, line.BeforeUnits,
			line.CountedCartons, line.CountedUnits,
			line.DeltaCartons, line.DeltaUnits, line.ShrinkageAmount,
			line.NeedsReview, line.ReviewReason,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func (r *ReconciliationRepo) List(ctx context.Context, filter reconciliation.ListFilter) (domain.ListResult[*reconciliation.Record], error) {
	result := domain.ListResult[*reconciliation.Record]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}

	if filter.CountedBy != nil {
		q = q.Where(squirrel.Eq{"counted_by": *filter.CountedBy})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.Policy != nil {
		q = q.Where(squirrel.Eq{"policy": *filter.Policy})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}

var _ reconciliation.Repository = (*ReconciliationRepo)(nil)
