// Package price implements the fixed-point decimal price type used
// throughout the backtester. All prices are multiples of a configured tick
// size; arithmetic that should preserve tick alignment (addition and
// subtraction of whole ticks) is exposed through TickSize rather than by
// operating on raw decimals.
package price

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// divisionPrecision mirrors the original engine's Decimal context
// (getcontext().prec = 12): ratios and averages are rounded to 12
// significant fractional digits, prices and cash are never divided except
// for averaging and ratio computation.
const divisionPrecision = 12

func init() {
	decimal.DivisionPrecision = divisionPrecision
}

// Price is an immutable fixed-point decimal value.
type Price struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Price{d: decimal.Zero}

// New wraps a decimal.Decimal as a Price without alignment checks.
func New(d decimal.Decimal) Price { return Price{d: d} }

// FromString parses a decimal string into a Price.
func FromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("price: parse %q: %w", s, err)
	}
	return Price{d: d}, nil
}

// MustFromString parses s, panicking on error. Intended for constants and
// test fixtures, never for untrusted input.
func MustFromString(s string) Price {
	p, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Decimal() decimal.Decimal { return p.d }

func (p Price) Add(o Price) Price { return Price{d: p.d.Add(o.d)} }
func (p Price) Sub(o Price) Price { return Price{d: p.d.Sub(o.d)} }
func (p Price) Neg() Price         { return Price{d: p.d.Neg()} }

// MulInt scales the price by an integer quantity, used to compute notional
// values (price * qty).
func (p Price) MulInt(qty int64) Price {
	return Price{d: p.d.Mul(decimal.NewFromInt(qty))}
}

// Div divides two prices, used only for ratios (never for price comparison
// or cash accounting, per the no-float-comparison invariant).
func (p Price) Div(o Price) decimal.Decimal {
	return p.d.DivRound(o.d, divisionPrecision)
}

func (p Price) Cmp(o Price) int          { return p.d.Cmp(o.d) }
func (p Price) Equal(o Price) bool       { return p.d.Equal(o.d) }
func (p Price) LessThan(o Price) bool    { return p.d.LessThan(o.d) }
func (p Price) LessOrEqual(o Price) bool { return p.d.LessThanOrEqual(o.d) }
func (p Price) GreaterThan(o Price) bool { return p.d.GreaterThan(o.d) }
func (p Price) GreaterOrEqual(o Price) bool {
	return p.d.GreaterThanOrEqual(o.d)
}
func (p Price) IsZero() bool     { return p.d.IsZero() }
func (p Price) IsPositive() bool { return p.d.IsPositive() }
func (p Price) IsNegative() bool { return p.d.IsNegative() }

func (p Price) String() string { return p.d.String() }

// Max returns the larger of two prices.
func Max(a, b Price) Price {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of two prices.
func Min(a, b Price) Price {
	if a.LessThan(b) {
		return a
	}
	return b
}

// TickSize is the instrument's price granularity. All resting book prices
// and signal/order prices are expected to be exact multiples of it.
type TickSize struct {
	d decimal.Decimal
}

// NewTickSize parses a tick size string (e.g. "0.25").
func NewTickSize(s string) (TickSize, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return TickSize{}, fmt.Errorf("price: parse tick size %q: %w", s, err)
	}
	if !d.IsPositive() {
		return TickSize{}, fmt.Errorf("price: tick size must be positive, got %s", s)
	}
	return TickSize{d: d}, nil
}

func (t TickSize) Decimal() decimal.Decimal { return t.d }

// Add returns p shifted by n ticks (n may be negative). Since both p and
// t.d are exact multiples/decimals, the result stays tick-aligned.
func (t TickSize) Add(p Price, n int) Price {
	return Price{d: p.d.Add(t.d.Mul(decimal.NewFromInt(int64(n))))}
}

// Ticks returns how many whole ticks separate two prices: (a-b)/tickSize.
func (t TickSize) Ticks(a, b Price) decimal.Decimal {
	return a.Sub(b).d.DivRound(t.d, divisionPrecision)
}

// TickValue is the currency value of one tick move, per contract.
type TickValue struct {
	d decimal.Decimal
}

// NewTickValue parses a tick value string (e.g. "12.50").
func NewTickValue(s string) (TickValue, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return TickValue{}, fmt.Errorf("price: parse tick value %q: %w", s, err)
	}
	return TickValue{d: d}, nil
}

func (t TickValue) Decimal() decimal.Decimal { return t.d }

// PnLCurrency converts a price delta into a currency P&L for qty contracts,
// using tick-size normalization: (delta / tickSize) * tickValue * qty.
func PnLCurrency(delta Price, tick TickSize, value TickValue, qty int64) decimal.Decimal {
	ticks := delta.d.DivRound(tick.d, divisionPrecision)
	return ticks.Mul(value.d).Mul(decimal.NewFromInt(qty))
}
