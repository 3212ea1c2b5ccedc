package memory

import (
	"context"
	"time"

	"magasin/internal/core/numerator"
)

// NumberGenerator implements numerator.Generator. Strict counters live in
// the store state, so a rolled back transaction also rolls back its number.
type NumberGenerator struct {
	store *Store
}

var _ numerator.Generator = (*NumberGenerator)(nil)

func (g *NumberGenerator) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	if cfg.Strategy == numerator.StrategyRandom {
		return numerator.Random(cfg, period), nil
	}
	var n int64
	err := g.store.write(ctx, func(st *state) error {
		key := cfg.SequenceKey(period)
		st.sequences[key]++
		n = st.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return cfg.Format(period, n), nil
}
