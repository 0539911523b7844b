// Package report computes the aggregate performance statistics spec.md §6
// lists as a core output: net P&L, win rate, profit factor, max drawdown,
// and annualized Sharpe ratio, plus the daily-resampled equity curve those
// figures are derived from. Grounded on analysis/performance.py's numeric
// half; the plotting and CSV export that file also does stay external,
// per SPEC_FULL.md §4.6.
package report

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderflow-labs/footprint-backtester/internal/portfolio"
)

// Stats is the final summary printed by cmd/backtester.
type Stats struct {
	InitialCapital decimal.Decimal
	FinalEquity    decimal.Decimal
	TotalNetPnL    decimal.Decimal
	TotalTrades    int
	WinRate        decimal.Decimal
	ProfitFactor   decimal.Decimal
	// ProfitFactorInf is set when gross losses are zero, matching the
	// original's float('inf') sentinel.
	ProfitFactorInf bool
	MaxDrawdown     decimal.Decimal
	SharpeRatio     float64
	// SharpeValid is false when there are fewer than two daily return
	// samples or the sample has zero variance, matching the original's
	// float('nan') sentinel.
	SharpeValid bool
	DailyEquity []portfolio.EquityPoint
}

const dayNs = int64(24 * time.Hour)

// resampleDaily keeps the last equity sample observed within each calendar
// day bucket, mirroring pandas' `resample('1D').last()`. The input is
// assumed ascending by timestamp, which portfolio.Portfolio guarantees.
func resampleDaily(curve []portfolio.EquityPoint) []portfolio.EquityPoint {
	if len(curve) == 0 {
		return nil
	}
	out := make([]portfolio.EquityPoint, 0, len(curve))
	var curDay int64 = curve[0].Timestamp/dayNs - 1
	for _, pt := range curve {
		day := pt.Timestamp / dayNs
		if day != curDay {
			out = append(out, pt)
			curDay = day
		} else {
			out[len(out)-1] = pt
		}
	}
	return out
}

// Generate computes Stats from a completed portfolio's trade log and
// equity curve.
func Generate(p *portfolio.Portfolio) Stats {
	daily := resampleDaily(p.EquityCurve)

	stats := Stats{DailyEquity: daily}
	if len(p.EquityCurve) > 0 {
		stats.InitialCapital = p.EquityCurve[0].Equity
	}
	if len(daily) > 0 {
		stats.FinalEquity = daily[len(daily)-1].Equity
	}

	stats.TotalTrades = len(p.TradeLog)
	if stats.TotalTrades == 0 {
		return stats
	}

	var wins int
	var grossProfit, grossLoss, totalNet decimal.Decimal
	for _, t := range p.TradeLog {
		net := t.PnL.Sub(t.Commission)
		totalNet = totalNet.Add(net)
		switch {
		case net.IsPositive():
			wins++
			grossProfit = grossProfit.Add(net)
		case net.IsNegative():
			grossLoss = grossLoss.Add(net.Abs())
		}
	}
	stats.TotalNetPnL = totalNet
	stats.WinRate = decimal.NewFromInt(int64(wins)).DivRound(decimal.NewFromInt(int64(stats.TotalTrades)), 6)
	if grossLoss.IsZero() {
		stats.ProfitFactorInf = true
	} else {
		stats.ProfitFactor = grossProfit.DivRound(grossLoss, 6)
	}

	if len(daily) == 0 {
		return stats
	}

	highWater := daily[0].Equity
	maxDD := decimal.Zero
	returns := make([]float64, 0, len(daily)-1)
	for i, pt := range daily {
		if pt.Equity.GreaterThan(highWater) {
			highWater = pt.Equity
		}
		if dd := highWater.Sub(pt.Equity); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
		if i > 0 {
			prev := daily[i-1].Equity
			if !prev.IsZero() {
				if f, ok := pt.Equity.Sub(prev).Div(prev).Float64(); ok {
					returns = append(returns, f)
				}
			}
		}
	}
	stats.MaxDrawdown = maxDD

	if len(returns) > 1 {
		mean := 0.0
		for _, r := range returns {
			mean += r
		}
		mean /= float64(len(returns))

		var sumSq float64
		for _, r := range returns {
			sumSq += (r - mean) * (r - mean)
		}
		// sample standard deviation (ddof=1), matching pandas Series.std().
		std := math.Sqrt(sumSq / float64(len(returns)-1))
		if std != 0 {
			stats.SharpeRatio = (mean / std) * math.Sqrt(252)
			stats.SharpeValid = true
		}
	}

	return stats
}
