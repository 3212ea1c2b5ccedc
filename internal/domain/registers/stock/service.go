package stock

import (
	"context"
	"fmt"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/core/tx"
	"magasin/internal/core/types"
	"magasin/internal/domain/directory"
	"magasin/pkg/logger"
	"magasin/pkg/metrics"
)

// DefaultHistoryLimit caps movement history queries without an explicit limit.
const DefaultHistoryLimit = 100

// Service is the only writer of the stock projection.
type Service struct {
	repo    Repository
	txm     tx.Manager
	catalog directory.Reader
	metrics *metrics.Business
	now     func() time.Time
}

// NewService creates a new stock service.
func NewService(repo Repository, txm tx.Manager, catalog directory.Reader, m *metrics.Business) *Service {
	return &Service{
		repo:    repo,
		txm:     txm,
		catalog: catalog,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordMovement appends a ledger entry and applies its signed delta to the
// projection in one transaction. When ctx already carries a transaction the
// writes join it.
func (s *Service) RecordMovement(ctx context.Context, m Movement) (Entry, error) {
	if err := validateMovement(m); err != nil {
		return Entry{}, err
	}
	if _, err := directory.ResolveProduct(ctx, s.catalog, m.StoreID, m.ProductID); err != nil {
		return Entry{}, err
	}

	now := s.now()
	entry := Entry{
		ProductID:     m.ProductID,
		StoreID:       m.StoreID,
		OrderID:       m.OrderID,
		MovementType:  m.MovementType,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		TotalValue:    types.LineTotalPtr(m.Quantity, m.UnitPrice),
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		Notes:         m.Notes,
		CreatedBy:     m.PerformedBy,
		CreatedAt:     now,
	}

	var level Level
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.repo.AppendEntry(ctx, entry)
		if err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		level, err = s.repo.ApplyDelta(ctx, m.ProductID, m.StoreID, entry.SignedQuantity(), now)
		if err != nil {
			return fmt.Errorf("apply projection delta: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	s.metrics.RecordStockMovement(ctx, m.StoreID, string(m.MovementType), m.Quantity)
	logger.Debug(ctx, "recorded stock movement",
		"entry_id", entry.ID,
		"product_id", m.ProductID,
		"store_id", m.StoreID,
		"movement_type", m.MovementType,
		"quantity", m.Quantity,
		"quantity_available", level.QuantityAvailable,
	)
	return entry, nil
}

func validateMovement(m Movement) error {
	if m.ProductID <= 0 {
		return apperror.NewInvalidInput("product_id is required")
	}
	if m.StoreID <= 0 {
		return apperror.NewInvalidInput("store_id is required")
	}
	if !m.MovementType.IsValid() {
		return apperror.NewInvalidInput("movement_type must be in or out").
			WithDetail("movement_type", m.MovementType)
	}
	if m.Quantity <= 0 {
		return apperror.NewInvalidInput("quantity must be a positive integer").
			WithDetail("quantity", m.Quantity)
	}
	if m.UnitPrice != nil && m.UnitPrice.IsNegative() {
		return apperror.NewInvalidInput("unit_price must not be negative")
	}
	return nil
}

// SetMinimumStock sets the alert threshold. It never touches the ledger.
func (s *Service) SetMinimumStock(ctx context.Context, productID, storeID, minimum int64) (Level, error) {
	if minimum < 0 {
		return Level{}, apperror.NewInvalidInput("minimum_stock must be >= 0").
			WithDetail("minimum_stock", minimum)
	}
	if _, err := directory.ResolveProduct(ctx, s.catalog, storeID, productID); err != nil {
		return Level{}, err
	}
	level, err := s.repo.SetMinimum(ctx, productID, storeID, minimum, s.now())
	if err != nil {
		return Level{}, fmt.Errorf("set minimum stock: %w", err)
	}
	return level, nil
}

// ListLowStock returns the store's levels at or under their minimum, most urgent first.
func (s *Service) ListLowStock(ctx context.Context, storeID int64) ([]Level, error) {
	return s.repo.ListLowStock(ctx, storeID)
}

// GetLevel returns the projection row for (product, store).
func (s *Service) GetLevel(ctx context.Context, productID, storeID int64) (Level, error) {
	return s.repo.GetLevel(ctx, productID, storeID)
}

// ListLevels returns every projection row of the store.
func (s *Service) ListLevels(ctx context.Context, storeID int64) ([]Level, error) {
	return s.repo.ListLevels(ctx, storeID)
}

// History returns ledger entries, newest first.
func (s *Service) History(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	if filter.StoreID <= 0 {
		return nil, apperror.NewInvalidInput("store_id is required")
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = DefaultHistoryLimit
	}
	return s.repo.ListEntries(ctx, filter)
}

// Rebuild replays the ledger into the projection for one store.
// Maintenance only; the hot path never calls it.
func (s *Service) Rebuild(ctx context.Context, storeID int64) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.RebuildLevels(ctx, storeID, s.now())
	})
	if err != nil {
		return fmt.Errorf("rebuild stock levels: %w", err)
	}
	logger.Info(ctx, "rebuilt stock projection", "store_id", storeID)
	return nil
}
