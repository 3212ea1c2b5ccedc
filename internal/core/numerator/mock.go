package numerator

import (
	"context"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	GetNextNumberFunc func(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// GetNextNumber implements Generator.
func (m *MockGenerator) GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error) {
	if m.GetNextNumberFunc != nil {
		return m.GetNextNumberFunc(ctx, cfg, period)
	}
	// Default: return predictable mock number
	return cfg.Format(period, 1), nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
