package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	tick, err := price.NewTickSize("0.25")
	require.NoError(t, err)
	return New("MNQ", tick, nil)
}

func TestApplyDepthInsertAndBBO(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(1, "MNQ", domain.Sell, price.MustFromString("100.00"), 10, 1, domain.CommandInsert, 1))
	b.ApplyDepth(domain.NewMarketDepth(2, "MNQ", domain.Buy, price.MustFromString("100.25"), 5, 1, domain.CommandInsert, 0))

	bidP, bidQ, askP, askQ := b.BBO()
	require.NotNil(t, bidP)
	require.NotNil(t, askP)
	assert.True(t, bidP.Equal(price.MustFromString("100.00")))
	assert.Equal(t, int64(10), bidQ)
	assert.True(t, askP.Equal(price.MustFromString("100.25")))
	assert.Equal(t, int64(5), askQ)
}

func TestApplyDepthIgnoresStaleUpdate(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(5, "MNQ", domain.Sell, price.MustFromString("100.00"), 10, 1, domain.CommandInsert, 1))
	b.ApplyDepth(domain.NewMarketDepth(3, "MNQ", domain.Sell, price.MustFromString("100.00"), 999, 1, domain.CommandUpdate, 1))

	lvl := b.Level(price.MustFromString("100.00"), domain.Sell)
	require.NotNil(t, lvl)
	assert.Equal(t, int64(10), lvl.Qty)
}

func TestApplyDepthIgnoresOtherSymbol(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(1, "ES", domain.Sell, price.MustFromString("100.00"), 10, 1, domain.CommandInsert, 1))
	_, bidQ, _, _ := b.BBO()
	assert.Equal(t, int64(0), bidQ)
}

func TestApplyDepthDeleteRemovesLevel(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(1, "MNQ", domain.Sell, price.MustFromString("100.00"), 10, 1, domain.CommandInsert, 1))
	b.ApplyDepth(domain.NewMarketDepth(2, "MNQ", domain.Sell, price.MustFromString("100.00"), 0, 0, domain.CommandDelete, 1))

	assert.Nil(t, b.Level(price.MustFromString("100.00"), domain.Sell))
	bidP, _, _, _ := b.BBO()
	assert.Nil(t, bidP)
}

func TestApplyDepthZeroQuantityUpdateDeletesLevel(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(1, "MNQ", domain.Buy, price.MustFromString("100.25"), 10, 1, domain.CommandInsert, 0))
	b.ApplyDepth(domain.NewMarketDepth(2, "MNQ", domain.Buy, price.MustFromString("100.25"), 0, 0, domain.CommandUpdate, 0))

	assert.Nil(t, b.Level(price.MustFromString("100.25"), domain.Buy))
}

func TestQtyAheadSumsStrictlyBetterPrices(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(1, "MNQ", domain.Sell, price.MustFromString("100.00"), 10, 1, domain.CommandInsert, 1))
	b.ApplyDepth(domain.NewMarketDepth(2, "MNQ", domain.Sell, price.MustFromString("100.25"), 20, 1, domain.CommandInsert, 1))
	b.ApplyDepth(domain.NewMarketDepth(3, "MNQ", domain.Sell, price.MustFromString("100.50"), 30, 1, domain.CommandInsert, 1))

	ahead := b.QtyAhead(price.MustFromString("100.25"), domain.Buy)
	assert.Equal(t, int64(30), ahead)

	aheadOfBest := b.QtyAhead(price.MustFromString("100.50"), domain.Buy)
	assert.Equal(t, int64(0), aheadOfBest)
}

func TestWalkLiquidityConsumesAcrossLevelsAndDrains(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(1, "MNQ", domain.Buy, price.MustFromString("100.25"), 10, 1, domain.CommandInsert, 0))
	b.ApplyDepth(domain.NewMarketDepth(2, "MNQ", domain.Buy, price.MustFromString("100.50"), 10, 1, domain.CommandInsert, 0))
	b.ApplyDepth(domain.NewMarketDepth(3, "MNQ", domain.Buy, price.MustFromString("100.75"), 10, 1, domain.CommandInsert, 0))

	res := b.WalkLiquidity(domain.Buy, 15)
	assert.Equal(t, int64(15), res.FilledQty)
	assert.True(t, res.AvgPrice.Equal(price.MustFromString("100.333333333333")))

	assert.Nil(t, b.Level(price.MustFromString("100.25"), domain.Buy))
	lvl := b.Level(price.MustFromString("100.50"), domain.Buy)
	require.NotNil(t, lvl)
	assert.Equal(t, int64(5), lvl.Qty)
}

func TestWalkLiquidityPartialWhenBookExhausted(t *testing.T) {
	b := newTestBook(t)
	b.ApplyDepth(domain.NewMarketDepth(1, "MNQ", domain.Sell, price.MustFromString("100.00"), 5, 1, domain.CommandInsert, 1))

	res := b.WalkLiquidity(domain.Sell, 100)
	assert.Equal(t, int64(5), res.FilledQty)
	bidP, _, _, _ := b.BBO()
	assert.Nil(t, bidP)
}

func TestCrossedBookLogsWarning(t *testing.T) {
	tick, err := price.NewTickSize("0.25")
	require.NoError(t, err)
	core, logs := observer.New(zap.WarnLevel)
	b := New("MNQ", tick, zap.New(core))
	b.ApplyDepth(domain.NewMarketDepth(1, "MNQ", domain.Sell, price.MustFromString("100.50"), 10, 1, domain.CommandInsert, 1))
	b.ApplyDepth(domain.NewMarketDepth(2, "MNQ", domain.Buy, price.MustFromString("100.00"), 10, 1, domain.CommandInsert, 0))

	bidP, _, askP, _ := b.BBO()
	require.NotNil(t, bidP)
	require.NotNil(t, askP)
	assert.True(t, bidP.GreaterOrEqual(*askP))
	assert.Equal(t, 1, logs.FilterMessage("order book crossed").Len())
}

func TestSeedSyntheticBookLadderShape(t *testing.T) {
	b := newTestBook(t)
	b.SeedSyntheticBook()

	bidP, bidQ, askP, askQ := b.BBO()
	require.NotNil(t, bidP)
	require.NotNil(t, askP)
	assert.True(t, bidP.Equal(price.MustFromString("5950.00")))
	assert.Equal(t, int64(1000), bidQ)
	assert.True(t, askP.Equal(price.MustFromString("5950.25")))
	assert.Equal(t, int64(100), askQ)
}
