// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator generates document numbers.
//
// Strict numbers must be drawn through the querier carried by ctx so the
// counter increment commits or rolls back together with the document.
type Generator interface {
	// GetNextNumber generates the next document number for period.
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}
