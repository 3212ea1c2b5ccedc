// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// LineTotal is quantity × unitPrice, unrounded.
func LineTotal(quantity int64, unitPrice Money) Money {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// LineTotalPtr is LineTotal for a nullable price; nil stays nil.
func LineTotalPtr(quantity int64, unitPrice *Money) *Money {
	if unitPrice == nil {
		return nil
	}
	total := LineTotal(quantity, *unitPrice)
	return &total
}

// Percent returns amount × rate / 100.
func Percent(amount, rate Money) Money {
	return amount.Mul(rate).Div(hundred)
}

// Round2 rounds to cents. Presentation only, never feed the result back into a total.
func Round2(m Money) Money {
	return m.Round(2)
}
