package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	store *Store
}

var _ stock.Repository = (*StockRepo)(nil)

func cloneEntry(e stock.Entry) stock.Entry {
	e.OrderID = cloneInt64(e.OrderID)
	e.ReferenceID = cloneInt64(e.ReferenceID)
	e.UnitPrice = cloneDecimal(e.UnitPrice)
	e.TotalValue = cloneDecimal(e.TotalValue)
	return e
}

func (r *StockRepo) AppendEntry(ctx context.Context, e stock.Entry) (stock.Entry, error) {
	err := r.store.write(ctx, func(st *state) error {
		e.ID = st.newID()
		st.entries = append(st.entries, cloneEntry(e))
		return nil
	})
	return e, err
}

func (r *StockRepo) ApplyDelta(ctx context.Context, productID, storeID, delta int64, at time.Time) (stock.Level, error) {
	var out stock.Level
	err := r.store.write(ctx, func(st *state) error {
		key := levelKey{productID: productID, storeID: storeID}
		l, ok := st.levels[key]
		if !ok {
			l = stock.Level{ProductID: productID, StoreID: storeID}
		}
		l.QuantityAvailable += delta
		l.LastUpdated = at
		st.levels[key] = l
		out = l
		return nil
	})
	return out, err
}

func (r *StockRepo) SetMinimum(ctx context.Context, productID, storeID, minimum int64, at time.Time) (stock.Level, error) {
	var out stock.Level
	err := r.store.write(ctx, func(st *state) error {
		key := levelKey{productID: productID, storeID: storeID}
		l, ok := st.levels[key]
		if !ok {
			l = stock.Level{ProductID: productID, StoreID: storeID}
		}
		l.MinimumStock = minimum
		l.LastUpdated = at
		st.levels[key] = l
		out = l
		return nil
	})
	return out, err
}

func (r *StockRepo) GetLevel(ctx context.Context, productID, storeID int64) (stock.Level, error) {
	var out stock.Level
	err := r.store.read(ctx, func(st *state) error {
		l, ok := st.levels[levelKey{productID: productID, storeID: storeID}]
		if !ok {
			return apperror.NewNotFound("stock level", productID).WithDetail("store_id", storeID)
		}
		out = l
		return nil
	})
	return out, err
}

func (r *StockRepo) levelsWhere(ctx context.Context, keep func(stock.Level) bool) ([]stock.Level, error) {
	out := []stock.Level{}
	err := r.store.read(ctx, func(st *state) error {
		for _, l := range st.levels {
			if keep(l) {
				out = append(out, l)
			}
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) ListLevels(ctx context.Context, storeID int64) ([]stock.Level, error) {
	out, err := r.levelsWhere(ctx, func(l stock.Level) bool { return l.StoreID == storeID })
	slices.SortFunc(out, func(a, b stock.Level) int { return cmp.Compare(a.ProductID, b.ProductID) })
	return out, err
}

func (r *StockRepo) ListLowStock(ctx context.Context, storeID int64) ([]stock.Level, error) {
	out, err := r.levelsWhere(ctx, func(l stock.Level) bool { return l.StoreID == storeID && l.IsLow() })
	slices.SortFunc(out, func(a, b stock.Level) int {
		if c := cmp.Compare(a.QuantityAvailable, b.QuantityAvailable); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return out, err
}

func (r *StockRepo) ListEntries(ctx context.Context, filter stock.EntryFilter) ([]stock.Entry, error) {
	out := []stock.Entry{}
	err := r.store.read(ctx, func(st *state) error {
		for i := len(st.entries) - 1; i >= 0; i-- {
			e := st.entries[i]
			if e.StoreID != filter.StoreID {
				continue
			}
			if filter.ProductID != nil && e.ProductID != *filter.ProductID {
				continue
			}
			if filter.OrderID != nil && (e.OrderID == nil || *e.OrderID != *filter.OrderID) {
				continue
			}
			out = append(out, cloneEntry(e))
		}
		return nil
	})
	return page(out, filter.Limit, filter.Offset), err
}

func (r *StockRepo) RebuildLevels(ctx context.Context, storeID int64, at time.Time) error {
	return r.store.write(ctx, func(st *state) error {
		sums := make(map[int64]int64)
		for _, e := range st.entries {
			if e.StoreID == storeID {
				sums[e.ProductID] += e.SignedQuantity()
			}
		}
		for key, l := range st.levels {
			if key.storeID != storeID {
				continue
			}
			l.QuantityAvailable = sums[key.productID]
			l.LastUpdated = at
			st.levels[key] = l
			delete(sums, key.productID)
		}
		for productID, qty := range sums {
			st.levels[levelKey{productID: productID, storeID: storeID}] = stock.Level{
				ProductID:         productID,
				StoreID:           storeID,
				QuantityAvailable: qty,
				LastUpdated:       at,
			}
		}
		return nil
	})
}
