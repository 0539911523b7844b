package backtest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderflow-labs/footprint-backtester/internal/book"
	"github.com/orderflow-labs/footprint-backtester/internal/datasource"
	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/execution"
	"github.com/orderflow-labs/footprint-backtester/internal/portfolio"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
	"github.com/orderflow-labs/footprint-backtester/internal/strategy"
)

// wireScenario builds a fully wired controller running one synthetic
// end-to-end scenario (spec §8), exactly as cmd/backtester would for
// `test_scenario` set.
func wireScenario(t *testing.T, scenario string) (*Controller, *portfolio.Portfolio) {
	t.Helper()
	tick, err := price.NewTickSize("0.25")
	require.NoError(t, err)
	value, err := price.NewTickValue("12.50")
	require.NoError(t, err)

	logger := zap.NewNop()
	b := book.New("MNQ", tick, logger)
	b.SeedSyntheticBook()

	q := domain.NewEventQueue()
	p := portfolio.New(decimal.NewFromInt(100000), tick, value, logger)

	execCfg := execution.Config{
		Symbol:                 "MNQ",
		TickSize:               tick,
		CommissionPerContract:  decimal.NewFromFloat(2.50),
		LatencyDataToSignalNs:  100_000,
		LatencySignalToOrderNs: 500_000,
	}
	e := execution.New(execCfg, b, q, logger)

	stratCfg := strategy.Config{
		Symbol:              "MNQ",
		TickSize:            tick,
		PercentageThreshold: decimal.NewFromInt(150),
		StopTicks:           11,
		RiskReward:          decimal.NewFromFloat(2.5),
		BarIntervalMinutes:  1,
	}
	s := strategy.New(stratCfg, b, q, logger)

	src := datasource.NewSyntheticScenario(scenario, "MNQ", s.StrategyID)
	ctrl := New("MNQ", q, b, p, e, s, src, 0, logger)
	return ctrl, p
}

func TestScenarioLongTargetRealizesProfit(t *testing.T) {
	ctrl, p := wireScenario(t, "long_target")
	require.NoError(t, ctrl.Run(context.Background()))

	require.Len(t, p.TradeLog, 1)
	trade := p.TradeLog[0]
	assert.Equal(t, portfolio.Long, trade.Direction)
	assert.True(t, trade.PnL.IsPositive(), "target exit must realize a profit")
	assert.Empty(t, p.Holdings)
}

func TestScenarioLongStopRealizesLoss(t *testing.T) {
	ctrl, p := wireScenario(t, "long_stop")
	require.NoError(t, ctrl.Run(context.Background()))

	require.Len(t, p.TradeLog, 1)
	trade := p.TradeLog[0]
	assert.Equal(t, portfolio.Long, trade.Direction)
	assert.True(t, trade.PnL.IsNegative(), "stop exit must realize a loss")
	assert.Empty(t, p.Holdings)
}

func TestScenarioShortTargetRealizesProfit(t *testing.T) {
	ctrl, p := wireScenario(t, "short_target")
	require.NoError(t, ctrl.Run(context.Background()))

	require.Len(t, p.TradeLog, 1)
	trade := p.TradeLog[0]
	assert.Equal(t, portfolio.Short, trade.Direction)
	assert.True(t, trade.PnL.IsPositive())
	assert.Empty(t, p.Holdings)
}

func TestScenarioShortStopRealizesLoss(t *testing.T) {
	ctrl, p := wireScenario(t, "short_stop")
	require.NoError(t, ctrl.Run(context.Background()))

	require.Len(t, p.TradeLog, 1)
	trade := p.TradeLog[0]
	assert.Equal(t, portfolio.Short, trade.Direction)
	assert.True(t, trade.PnL.IsNegative())
	assert.Empty(t, p.Holdings)
}

func TestScenarioPositionFullyClosedAfterBracketResolves(t *testing.T) {
	ctrl, p := wireScenario(t, "long_target")
	require.NoError(t, ctrl.Run(context.Background()))

	assert.False(t, p.Cash.Equal(decimal.NewFromInt(100000)), "cash must move once fills occur")
	assert.Empty(t, p.Holdings)
	assert.Empty(t, p.OpenPos)
	assert.Empty(t, p.AvgPrice)
}

func TestScenarioMaxEventsBoundsDispatch(t *testing.T) {
	ctrl, _ := wireScenario(t, "long_target")
	ctrl.maxEvents = 1
	require.NoError(t, ctrl.Run(context.Background()))
	assert.Equal(t, int64(0), ctrl.CurrentTime())
}
