package price

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringRoundTrips(t *testing.T) {
	p, err := FromString("5950.25")
	require.NoError(t, err)
	assert.Equal(t, "5950.25", p.String())
}

func TestFromStringRejectsGarbage(t *testing.T) {
	_, err := FromString("not-a-number")
	assert.Error(t, err)
}

func TestMustFromStringPanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustFromString("nope") })
}

func TestComparisons(t *testing.T) {
	a := MustFromString("5950.25")
	b := MustFromString("5950.50")

	assert.True(t, a.LessThan(b))
	assert.True(t, a.LessOrEqual(b))
	assert.True(t, b.GreaterThan(a))
	assert.True(t, b.GreaterOrEqual(a))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(MustFromString("5950.25")))
}

func TestMaxMin(t *testing.T) {
	a := MustFromString("5950.25")
	b := MustFromString("5950.50")
	assert.True(t, Max(a, b).Equal(b))
	assert.True(t, Min(a, b).Equal(a))
}

func TestAddSubNeg(t *testing.T) {
	a := MustFromString("10.00")
	b := MustFromString("2.50")
	assert.True(t, a.Add(b).Equal(MustFromString("12.50")))
	assert.True(t, a.Sub(b).Equal(MustFromString("7.50")))
	assert.True(t, a.Neg().Equal(MustFromString("-10.00")))
}

func TestSignChecks(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.True(t, MustFromString("1").IsPositive())
	assert.True(t, MustFromString("-1").IsNegative())
}

func TestNewTickSizeRejectsNonPositive(t *testing.T) {
	_, err := NewTickSize("0")
	assert.Error(t, err)
	_, err = NewTickSize("-0.25")
	assert.Error(t, err)
}

func TestTickSizeAddShiftsByWholeTicks(t *testing.T) {
	tick, err := NewTickSize("0.25")
	require.NoError(t, err)
	p := MustFromString("5950.00")
	assert.True(t, tick.Add(p, 4).Equal(MustFromString("5951.00")))
	assert.True(t, tick.Add(p, -2).Equal(MustFromString("5949.50")))
}

func TestTickSizeTicksComputesDistance(t *testing.T) {
	tick, err := NewTickSize("0.25")
	require.NoError(t, err)
	a := MustFromString("5951.00")
	b := MustFromString("5950.00")
	got := tick.Ticks(a, b)
	assert.True(t, got.Equal(decimal.NewFromInt(4)))
}

func TestPnLCurrencyScalesByTicksAndQty(t *testing.T) {
	tick, err := NewTickSize("0.25")
	require.NoError(t, err)
	value, err := NewTickValue("12.50")
	require.NoError(t, err)

	delta := MustFromString("1.00") // 4 ticks
	got := PnLCurrency(delta, tick, value, 3)
	assert.True(t, got.Equal(decimal.NewFromFloat(150)), "4 ticks * 12.50 * 3 contracts = 150, got %s", got)
}

func TestPnLCurrencyNegativeDeltaIsLoss(t *testing.T) {
	tick, err := NewTickSize("0.25")
	require.NoError(t, err)
	value, err := NewTickValue("12.50")
	require.NoError(t, err)

	delta := MustFromString("-0.50") // -2 ticks
	got := PnLCurrency(delta, tick, value, 2)
	assert.True(t, got.Equal(decimal.NewFromFloat(-50)))
}
