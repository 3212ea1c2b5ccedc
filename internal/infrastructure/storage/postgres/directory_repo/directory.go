// Package directory_repo reads stores, suppliers and catalog products from PostgreSQL.
package directory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/directory"
	"magasin/internal/infrastructure/storage/postgres"
)

const (
	storesTable    = "stores"
	suppliersTable = "suppliers"
	productsTable  = "products"
)

// Repo implements directory.Reader.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ directory.Reader = (*Repo)(nil)

// NewRepo creates a directory reader.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm, builder: postgres.Builder()}
}

func (r *Repo) storeQuery(id int64) squirrel.SelectBuilder {
	return r.builder.Select("id", "name", "address", "responsible_id").
		From(storesTable).
		Where(squirrel.Eq{"id": id})
}

func (r *Repo) supplierQuery(id int64) squirrel.SelectBuilder {
	return r.builder.Select("id", "store_id", "name", "email", "phone", "address").
		From(suppliersTable).
		Where(squirrel.Eq{"id": id})
}

func (r *Repo) productQuery(id int64) squirrel.SelectBuilder {
	return r.builder.Select("id", "store_id", "name", "price", "approved").
		From(productsTable).
		Where(squirrel.Eq{"id": id})
}

func (r *Repo) GetStore(ctx context.Context, id int64) (directory.Store, error) {
	var s directory.Store
	err := r.getOne(ctx, r.storeQuery(id), &s, "store", id)
	return s, err
}

func (r *Repo) GetSupplier(ctx context.Context, id int64) (directory.Supplier, error) {
	var s directory.Supplier
	err := r.getOne(ctx, r.supplierQuery(id), &s, "supplier", id)
	return s, err
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (directory.Product, error) {
	var p directory.Product
	err := r.getOne(ctx, r.productQuery(id), &p, "product", id)
	return p, err
}

func (r *Repo) getOne(ctx context.Context, q squirrel.SelectBuilder, dst any, entity string, id int64) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", entity, err)
	}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(entity, id)
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}
