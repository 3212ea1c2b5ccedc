// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses INSERT ... ON CONFLICT ... RETURNING for every number.
	// Guarantees sequential numbers without gaps when called inside the
	// document's own transaction. Used for invoices.
	StrategyStrict Strategy = iota

	// StrategyRandom draws a random suffix. Numbers are not sequential and
	// the caller is responsible for the uniqueness check. Used for orders.
	StrategyRandom
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "FAC", "BC")
	Prefix string

	// PeriodLayout is the time layout of the middle segment ("2006", "20060102").
	// The strict sequence restarts for every distinct period value.
	PeriodLayout string

	// PadWidth is the zero-padded width of the counter segment
	PadWidth int

	Strategy Strategy
}

// OrderConfig numbers purchase orders as BC-YYYYMMDD-RRRR.
func OrderConfig() Config {
	return Config{
		Prefix:       "BC",
		PeriodLayout: "20060102",
		PadWidth:     4,
		Strategy:     StrategyRandom,
	}
}

// InvoiceConfig numbers invoices as FAC-YYYY-NNNNN.
func InvoiceConfig() Config {
	return Config{
		Prefix:       "FAC",
		PeriodLayout: "2006",
		PadWidth:     5,
		Strategy:     StrategyStrict,
	}
}

// SequenceKey identifies the counter a strict number is drawn from.
func (c Config) SequenceKey(period time.Time) string {
	return c.Prefix + "-" + period.Format(c.PeriodLayout)
}

// Format renders a number for the given period and counter value.
func (c Config) Format(period time.Time, n int64) string {
	return fmt.Sprintf("%s-%0*d", c.SequenceKey(period), c.PadWidth, n)
}

// Ceiling is the exclusive upper bound of a counter that fits PadWidth.
func (c Config) Ceiling() int64 {
	ceil := int64(1)
	for i := 0; i < c.PadWidth; i++ {
		ceil *= 10
	}
	return ceil
}

// Random formats a number with a uniformly drawn counter in [0, Ceiling).
func Random(cfg Config, period time.Time) string {
	return cfg.Format(period, rand.Int64N(cfg.Ceiling()))
}
