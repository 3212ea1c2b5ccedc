// Package register_repo provides the PostgreSQL stock ledger and projection.
package register_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "stock_movements"
	stockLevelsTable    = "stock_levels"
)

var (
	entryColumns = []string{
		"id", "product_id", "store_id", "order_id", "movement_type", "quantity",
		"unit_price", "total_value", "reference_type", "reference_id", "notes",
		"created_by", "created_at",
	}
	levelColumns = []string{
		"product_id", "store_id", "quantity_available", "minimum_stock", "last_updated",
	}
)

// signedQuantitySQL folds a movement into its projection delta.
const signedQuantitySQL = "CASE WHEN m.movement_type = 'out' THEN -m.quantity ELSE m.quantity END"

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{txm: txm, builder: postgres.Builder()}
}

func (r *StockRepo) appendQuery(e stock.Entry) squirrel.InsertBuilder {
	return r.builder.Insert(stockMovementsTable).
		Columns("product_id", "store_id", "order_id", "movement_type", "quantity",
			"unit_price", "total_value", "reference_type", "reference_id", "notes",
			"created_by", "created_at").
		Values(e.ProductID, e.StoreID, e.OrderID, string(e.MovementType), e.Quantity,
			e.UnitPrice, e.TotalValue, e.ReferenceType, e.ReferenceID, e.Notes,
			e.CreatedBy, e.CreatedAt).
		Suffix("RETURNING id")
}

// AppendEntry inserts one ledger row.
func (r *StockRepo) AppendEntry(ctx context.Context, e stock.Entry) (stock.Entry, error) {
	sql, args, err := r.appendQuery(e).ToSql()
	if err != nil {
		return e, fmt.Errorf("build insert: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		return e, fmt.Errorf("insert stock movement: %w", postgres.MapWriteError(err, "stock movement"))
	}
	return e, nil
}

func (r *StockRepo) applyDeltaQuery(productID, storeID, delta int64, at time.Time) squirrel.InsertBuilder {
	return r.builder.Insert(stockLevelsTable).
		Columns("product_id", "store_id", "quantity_available", "minimum_stock", "last_updated").
		Values(productID, storeID, delta, 0, at).
		Suffix("ON CONFLICT (product_id, store_id) DO UPDATE SET " +
			"quantity_available = stock_levels.quantity_available + EXCLUDED.quantity_available, " +
			"last_updated = EXCLUDED.last_updated " +
			"RETURNING " + joinColumns(levelColumns))
}

// ApplyDelta increments the projection in a single statement; concurrent
// writers serialise on the row instead of overwriting each other.
func (r *StockRepo) ApplyDelta(ctx context.Context, productID, storeID, delta int64, at time.Time) (stock.Level, error) {
	sql, args, err := r.applyDeltaQuery(productID, storeID, delta, at).ToSql()
	if err != nil {
		return stock.Level{}, fmt.Errorf("build upsert: %w", err)
	}
	var level stock.Level
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &level, sql, args...); err != nil {
		return stock.Level{}, fmt.Errorf("apply stock delta: %w", err)
	}
	return level, nil
}

func (r *StockRepo) setMinimumQuery(productID, storeID, minimum int64, at time.Time) squirrel.InsertBuilder {
	return r.builder.Insert(stockLevelsTable).
		Columns("product_id", "store_id", "quantity_available", "minimum_stock", "last_updated").
		Values(productID, storeID, 0, minimum, at).
		Suffix("ON CONFLICT (product_id, store_id) DO UPDATE SET " +
			"minimum_stock = EXCLUDED.minimum_stock, last_updated = EXCLUDED.last_updated " +
			"RETURNING " + joinColumns(levelColumns))
}

func (r *StockRepo) SetMinimum(ctx context.Context, productID, storeID, minimum int64, at time.Time) (stock.Level, error) {
	sql, args, err := r.setMinimumQuery(productID, storeID, minimum, at).ToSql()
	if err != nil {
		return stock.Level{}, fmt.Errorf("build upsert: %w", err)
	}
	var level stock.Level
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &level, sql, args...); err != nil {
		return stock.Level{}, fmt.Errorf("set minimum stock: %w", err)
	}
	return level, nil
}

func (r *StockRepo) GetLevel(ctx context.Context, productID, storeID int64) (stock.Level, error) {
	sql, args, err := r.builder.Select(levelColumns...).
		From(stockLevelsTable).
		Where(squirrel.Eq{"product_id": productID, "store_id": storeID}).
		ToSql()
	if err != nil {
		return stock.Level{}, fmt.Errorf("build query: %w", err)
	}
	var level stock.Level
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Level{}, apperror.NewNotFound("stock level", productID).WithDetail("store_id", storeID)
		}
		return stock.Level{}, fmt.Errorf("get stock level: %w", err)
	}
	return level, nil
}

func (r *StockRepo) ListLevels(ctx context.Context, storeID int64) ([]stock.Level, error) {
	q := r.builder.Select(levelColumns...).
		From(stockLevelsTable).
		Where(squirrel.Eq{"store_id": storeID}).
		OrderBy("product_id")
	return r.selectLevels(ctx, q)
}

func (r *StockRepo) lowStockQuery(storeID int64) squirrel.SelectBuilder {
	return r.builder.Select(levelColumns...).
		From(stockLevelsTable).
		Where(squirrel.Eq{"store_id": storeID}).
		Where("quantity_available <= minimum_stock").
		OrderBy("quantity_available ASC", "product_id ASC")
}

func (r *StockRepo) ListLowStock(ctx context.Context, storeID int64) ([]stock.Level, error) {
	return r.selectLevels(ctx, r.lowStockQuery(storeID))
}

func (r *StockRepo) selectLevels(ctx context.Context, q squirrel.SelectBuilder) ([]stock.Level, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	levels := []stock.Level{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	return levels, nil
}

func (r *StockRepo) entriesQuery(filter stock.EntryFilter) squirrel.SelectBuilder {
	q := r.builder.Select(entryColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"store_id": filter.StoreID})
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}
	return postgres.Page(q.OrderBy("id DESC"), filter.Limit, filter.Offset)
}

func (r *StockRepo) ListEntries(ctx context.Context, filter stock.EntryFilter) ([]stock.Entry, error) {
	sql, args, err := r.entriesQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	entries := []stock.Entry{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	return entries, nil
}

const (
	rebuildExistingSQL = `
		UPDATE stock_levels l
		SET quantity_available = COALESCE((
				SELECT SUM(` + signedQuantitySQL + `)
				FROM stock_movements m
				WHERE m.product_id = l.product_id AND m.store_id = l.store_id
			), 0),
			last_updated = $1
		WHERE l.store_id = $2`

	rebuildMissingSQL = `
		INSERT INTO stock_levels (product_id, store_id, quantity_available, minimum_stock, last_updated)
		SELECT m.product_id, m.store_id, SUM(` + signedQuantitySQL + `), 0, $1
		FROM stock_movements m
		WHERE m.store_id = $2
		GROUP BY m.product_id, m.store_id
		ON CONFLICT (product_id, store_id) DO NOTHING`
)

// RebuildLevels replays the ledger of one store into the projection.
// Minimum thresholds are left untouched.
func (r *StockRepo) RebuildLevels(ctx context.Context, storeID int64, at time.Time) error {
	q := r.txm.GetQuerier(ctx)
	if _, err := q.Exec(ctx, rebuildExistingSQL, at, storeID); err != nil {
		return fmt.Errorf("rebuild existing levels: %w", err)
	}
	if _, err := q.Exec(ctx, rebuildMissingSQL, at, storeID); err != nil {
		return fmt.Errorf("rebuild missing levels: %w", err)
	}
	return nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
