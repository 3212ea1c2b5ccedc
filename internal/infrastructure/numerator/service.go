// Package numerator provides the PostgreSQL implementation of document numbering.
// It implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "magasin/internal/core/numerator"
	"magasin/internal/infrastructure/storage/postgres"
)

// Querier is the part of pgx the numerator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nextValueSQL increments one counter and returns its new value. The row
// lock taken by the upsert is held until the surrounding transaction ends,
// which keeps strict numbers free of gaps.
const nextValueSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, 1)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val`

// Service generates document numbers.
type Service struct {
	querier func(ctx context.Context) Querier
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a service bound to a fixed querier.
func New(q Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return q }}
}

// NewFromTxManager creates a service that draws strict numbers through the
// transaction carried by ctx, falling back to the pool outside one.
func NewFromTxManager(txm *postgres.TxManager) *Service {
	return &Service{querier: func(ctx context.Context) Querier { return txm.GetQuerier(ctx) }}
}

// GetNextNumber returns the next number for cfg in period.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil || s.querier == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	if cfg.Strategy == corenumerator.StrategyRandom {
		return corenumerator.Random(cfg, period), nil
	}

	var n int64
	if err := s.querier(ctx).QueryRow(ctx, nextValueSQL, cfg.SequenceKey(period)).Scan(&n); err != nil {
		return "", fmt.Errorf("next %s number: %w", cfg.Prefix, err)
	}
	return cfg.Format(period, n), nil
}

// SetNextNumber positions a counter so the next strict number is value+1.
// Used when importing historical documents.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val`, cfg.SequenceKey(period), value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set %s counter: %w", cfg.Prefix, err)
	}
	return nil
}
