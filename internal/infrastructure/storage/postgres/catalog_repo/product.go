package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktake/internal/core/apperror"
	"stocktake/internal/domain"
	"stocktake/internal/domain/catalogs/product"
	"stocktake/internal/infrastructure/storage/postgres"
)

const (
	productsTable      = "cat_products"
	stockBalancesTable = "reg_stock_balances"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*product.Product](
			txm,
			productsTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// FindByBarcode retrieves a product by barcode.
func (r *ProductRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return item, nil
}

// FindLowStock retrieves products whose balance on any location is below
// the minimum stock threshold. Products with no balance row count as zero.
func (r *ProductRepo) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	cols := make([]string, 0, len(r.selectCols))
	for _, col := range r.selectCols {
		cols = append(cols, "p."+col)
	}

	q := r.Builder().
		Select(cols...).
		Distinct().
		From(productsTable+" p").
		LeftJoin(stockBalancesTable+" b ON b.product_id = p.id").
		Where(squirrel.Eq{"p.deletion_mark": false}).
		Where(squirrel.Eq{"p.is_active": true}).
		Where(squirrel.Gt{"p.min_stock_units": 0}).
		Where("COALESCE(b.cartons * p.units_per_carton + b.units, 0) < p.min_stock_units").
		OrderBy("p.name ASC")

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

	var items []*product.Product
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return result, fmt.Errorf("find low stock: %w", err)
	}
	result.Items = items
	result.TotalCount = int64(len(items))

	return result, nil
}

var _ product.Repository = (*ProductRepo)(nil)
