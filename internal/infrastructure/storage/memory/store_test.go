package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/core/apperror"
	"magasin/internal/core/numerator"
	"magasin/internal/domain/registers/stock"
)

func TestTxManager_RollbackRestoresState(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Stock()

	_, err := repo.ApplyDelta(ctx, 1, 1, 5, time.Now())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.AppendEntry(ctx, stock.Entry{ProductID: 1, StoreID: 1, MovementType: stock.MovementIn, Quantity: 3}); err != nil {
			return err
		}
		if _, err := repo.ApplyDelta(ctx, 1, 1, 3, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	level, err := repo.GetLevel(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), level.QuantityAvailable)

	entries, err := repo.ListEntries(ctx, stock.EntryFilter{StoreID: 1})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTxManager_RollbackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
			_, _ = s.Stock().ApplyDelta(ctx, 1, 1, 9, time.Now())
			panic("kaboom")
		})
	})

	_, err := s.Stock().GetLevel(ctx, 1, 1)
	assert.True(t, apperror.IsNotFound(err))
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	s := New()
	ctx := context.Background()
	txm := s.TxManager()

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		_, _ = s.Stock().ApplyDelta(ctx, 1, 1, 2, time.Now())
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := s.Stock().ApplyDelta(ctx, 1, 1, 3, time.Now())
			return err
		})
	})
	require.NoError(t, err)

	level, err := s.Stock().GetLevel(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), level.QuantityAvailable)
}

func TestStockRepo_ConcurrentDeltasAreNotLost(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Stock().ApplyDelta(ctx, 7, 1, 2, time.Now())
		}()
	}
	wg.Wait()

	level, err := s.Stock().GetLevel(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), level.QuantityAvailable)
}

func TestStockRepo_ListLowStockOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Stock()
	now := time.Now()

	_, _ = repo.ApplyDelta(ctx, 1, 1, 8, now)
	_, _ = repo.SetMinimum(ctx, 1, 1, 10, now)
	_, _ = repo.ApplyDelta(ctx, 2, 1, 2, now)
	_, _ = repo.SetMinimum(ctx, 2, 1, 5, now)
	_, _ = repo.ApplyDelta(ctx, 3, 1, 50, now)
	_, _ = repo.SetMinimum(ctx, 3, 1, 5, now)
	_, _ = repo.ApplyDelta(ctx, 4, 2, 0, now)

	low, err := repo.ListLowStock(ctx, 1)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, int64(2), low[0].ProductID)
	assert.Equal(t, int64(1), low[1].ProductID)
}

func TestStockRepo_RebuildLevels(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Stock()
	now := time.Now()

	_, _ = repo.AppendEntry(ctx, stock.Entry{ProductID: 1, StoreID: 1, MovementType: stock.MovementIn, Quantity: 10})
	_, _ = repo.AppendEntry(ctx, stock.Entry{ProductID: 1, StoreID: 1, MovementType: stock.MovementOut, Quantity: 4})
	_, _ = repo.AppendEntry(ctx, stock.Entry{ProductID: 2, StoreID: 1, MovementType: stock.MovementIn, Quantity: 1})
	// drifted projection
	_, _ = repo.ApplyDelta(ctx, 1, 1, 99, now)
	_, _ = repo.SetMinimum(ctx, 1, 1, 3, now)

	require.NoError(t, repo.RebuildLevels(ctx, 1, now))

	levels, err := repo.ListLevels(ctx, 1)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, int64(6), levels[0].QuantityAvailable)
	assert.Equal(t, int64(3), levels[0].MinimumStock)
	assert.Equal(t, int64(1), levels[1].QuantityAvailable)
}

func TestNumberGenerator_StrictRollsBackWithTx(t *testing.T) {
	s := New()
	ctx := context.Background()
	gen := s.Numbers()
	period := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cfg := numerator.InvoiceConfig()

	first, err := gen.GetNextNumber(ctx, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2026-00001", first)

	_ = s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		_, _ = gen.GetNextNumber(ctx, cfg, period)
		return errors.New("abort")
	})

	next, err := gen.GetNextNumber(ctx, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2026-00002", next)
}

func TestRequestRepo_MarkConsumedOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	SeedDemo(ctx, s)

	repo := s.Requests()
	created, err := repo.Create(ctx, requestFixture())
	require.NoError(t, err)

	require.NoError(t, repo.MarkConsumed(ctx, created.ID, 100))
	err = repo.MarkConsumed(ctx, created.ID, 101)
	assert.True(t, apperror.IsConflict(err))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ConsumedByOrderID)
	assert.Equal(t, int64(100), *got.ConsumedByOrderID)
}
