package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderflow-labs/footprint-backtester/internal/portfolio"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

const day = int64(24 * time.Hour)

func newTestPortfolio(t *testing.T) *portfolio.Portfolio {
	t.Helper()
	tick, err := price.NewTickSize("0.25")
	require.NoError(t, err)
	value, err := price.NewTickValue("12.50")
	require.NoError(t, err)
	return portfolio.New(decimal.NewFromInt(100000), tick, value, zap.NewNop())
}

func TestResampleDailyKeepsLastSampleOfEachDay(t *testing.T) {
	curve := []portfolio.EquityPoint{
		{Timestamp: 0, Equity: decimal.NewFromInt(100000)},
		{Timestamp: day / 2, Equity: decimal.NewFromInt(100500)},
		{Timestamp: day - 1, Equity: decimal.NewFromInt(100200)},
		{Timestamp: day + 10, Equity: decimal.NewFromInt(101000)},
		{Timestamp: 2*day + 10, Equity: decimal.NewFromInt(99000)},
	}
	daily := resampleDaily(curve)
	require.Len(t, daily, 3)
	assert.True(t, daily[0].Equity.Equal(decimal.NewFromInt(100200)))
	assert.True(t, daily[1].Equity.Equal(decimal.NewFromInt(101000)))
	assert.True(t, daily[2].Equity.Equal(decimal.NewFromInt(99000)))
}

func TestGenerateWithNoTradesReturnsZeroStats(t *testing.T) {
	p := newTestPortfolio(t)
	stats := Generate(p)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.True(t, stats.InitialCapital.Equal(decimal.NewFromInt(100000)))
}

func TestGenerateComputesWinRateAndProfitFactor(t *testing.T) {
	p := newTestPortfolio(t)
	p.TradeLog = append(p.TradeLog,
		portfolio.ClosedTrade{PnL: decimal.NewFromInt(500), Commission: decimal.NewFromInt(10)},
		portfolio.ClosedTrade{PnL: decimal.NewFromInt(-200), Commission: decimal.NewFromInt(10)},
		portfolio.ClosedTrade{PnL: decimal.NewFromInt(300), Commission: decimal.NewFromInt(10)},
	)
	stats := Generate(p)
	require.Equal(t, 3, stats.TotalTrades)
	assert.True(t, stats.WinRate.Equal(decimal.NewFromFloat(2.0/3).Round(6)) || stats.WinRate.String() == "0.666667")
	assert.False(t, stats.ProfitFactorInf)
	assert.True(t, stats.ProfitFactor.GreaterThan(decimal.NewFromInt(2)))
}

func TestGenerateProfitFactorInfWhenNoLosses(t *testing.T) {
	p := newTestPortfolio(t)
	p.TradeLog = append(p.TradeLog, portfolio.ClosedTrade{PnL: decimal.NewFromInt(500), Commission: decimal.Zero})
	stats := Generate(p)
	assert.True(t, stats.ProfitFactorInf)
}

func TestGenerateSharpeInvalidWithFewerThanTwoReturns(t *testing.T) {
	p := newTestPortfolio(t)
	p.TradeLog = append(p.TradeLog, portfolio.ClosedTrade{PnL: decimal.NewFromInt(100), Commission: decimal.Zero})
	stats := Generate(p)
	assert.False(t, stats.SharpeValid)
}

func TestGenerateMaxDrawdownTracksHighWaterMark(t *testing.T) {
	p := newTestPortfolio(t)
	p.EquityCurve = []portfolio.EquityPoint{
		{Timestamp: 0, Equity: decimal.NewFromInt(100000)},
		{Timestamp: day, Equity: decimal.NewFromInt(110000)},
		{Timestamp: 2 * day, Equity: decimal.NewFromInt(95000)},
		{Timestamp: 3 * day, Equity: decimal.NewFromInt(105000)},
	}
	p.TradeLog = append(p.TradeLog, portfolio.ClosedTrade{PnL: decimal.NewFromInt(5000), Commission: decimal.Zero})
	stats := Generate(p)
	assert.True(t, stats.MaxDrawdown.Equal(decimal.NewFromInt(15000)))
}
