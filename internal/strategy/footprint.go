// Package strategy implements the footprint diagonal-ratio signal engine:
// a time-aligned volume-at-price profile whose bid/ask imbalance at
// adjacent price levels drives bracketed market entries.
package strategy

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderflow-labs/footprint-backtester/internal/book"
	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/metrics"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// Config carries the strategy's tunable parameters (spec.md §6).
type Config struct {
	Symbol               string
	TickSize             price.TickSize
	PercentageThreshold  decimal.Decimal
	EnableZeroCompares   bool
	ZeroCompareAction    domain.ZeroCompareAction
	StopTicks            int
	RiskReward           decimal.Decimal
	BarIntervalMinutes   int
	MinLiquidityCheck    int64
}

type vapLevel struct {
	bidVol int64
	askVol int64
}

// FootprintDiagonalRatio is the sole strategy implementation. One instance
// trades a single symbol with a one-slot position lock.
type FootprintDiagonalRatio struct {
	cfg        Config
	StrategyID string
	book       *book.Book
	queue      *domain.EventQueue
	logger     *zap.Logger

	activeOrderID   string
	currentPosition int64

	barStart    int64
	barInterval int64
	profile     map[int64]*vapLevel
}

// New constructs the strategy, wired to the shared book (for the optional
// min-liquidity gate) and event queue (for emitted signals).
func New(cfg Config, b *book.Book, queue *domain.EventQueue, logger *zap.Logger) *FootprintDiagonalRatio {
	return &FootprintDiagonalRatio{
		cfg:         cfg,
		StrategyID:  fmt.Sprintf("FootprintDiagonalRatio_%s", cfg.Symbol),
		book:        b,
		queue:       queue,
		logger:      logger,
		barInterval: int64(cfg.BarIntervalMinutes) * 60 * int64(time.Second),
		profile:     make(map[int64]*vapLevel),
	}
}

func (s *FootprintDiagonalRatio) tickIndex(p price.Price) int64 {
	return p.Decimal().DivRound(s.cfg.TickSize.Decimal(), 0).IntPart()
}

func (s *FootprintDiagonalRatio) priceAtIndex(idx int64) price.Price {
	return s.cfg.TickSize.Add(price.Zero, int(idx))
}

func (s *FootprintDiagonalRatio) resetBar(ts int64) {
	s.profile = make(map[int64]*vapLevel)
	t := time.Unix(0, ts).UTC()
	barMinute := (t.Minute() / s.cfg.BarIntervalMinutes) * s.cfg.BarIntervalMinutes
	aligned := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), barMinute, 0, 0, time.UTC)
	s.barStart = aligned.UnixNano()
}

func (s *FootprintDiagonalRatio) levelAt(idx int64) *vapLevel {
	lvl, ok := s.profile[idx]
	if !ok {
		lvl = &vapLevel{}
		s.profile[idx] = lvl
	}
	return lvl
}

// OnMarketData routes a trade into the current bar's VAP profile, rolling
// the bar over (and signaling on the just-closed bar) when the trade's
// timestamp reaches the bar boundary.
func (s *FootprintDiagonalRatio) OnMarketData(trade *domain.MarketTrade) {
	if trade.Symbol != s.cfg.Symbol {
		return
	}

	// The first trade opens the first bar. barStart alone cannot mark that,
	// since a bar aligned to the epoch legitimately starts at 0.
	if s.barStart == 0 && len(s.profile) == 0 {
		s.resetBar(trade.Timestamp())
	}

	if trade.Timestamp() >= s.barStart+s.barInterval {
		if len(s.profile) > 0 {
			s.calculateAndSignal(s.barStart + s.barInterval - 1)
		}
		s.resetBar(trade.Timestamp())
	}

	idx := s.tickIndex(trade.Price)
	lvl := s.levelAt(idx)
	switch trade.Side {
	case domain.Sell:
		lvl.bidVol += trade.Qty
	case domain.Buy:
		lvl.askVol += trade.Qty
	}
}

// calculateAndSignal scans every price with resting bid volume this bar,
// looks at the diagonal ask volume one tick up, and emits at most one
// bracketed entry signal for the bar.
func (s *FootprintDiagonalRatio) calculateAndSignal(ts int64) {
	if len(s.profile) == 0 || s.activeOrderID != "" {
		return
	}

	indices := make([]int64, 0, len(s.profile))
	for idx, lvl := range s.profile {
		if lvl.bidVol > 0 {
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	for _, bidIdx := range indices {
		bidVol := s.profile[bidIdx].bidVol
		askIdx := bidIdx + 1
		askVol := int64(0)
		if lvl, ok := s.profile[askIdx]; ok {
			askVol = lvl.askVol
		}

		ratio, ok := s.diagonalRatio(bidVol, askVol)
		if !ok {
			continue
		}

		var dir domain.Side
		var triggerIdx int64
		switch {
		case ratio.IsPositive() && ratio.GreaterThanOrEqual(s.cfg.PercentageThreshold):
			dir, triggerIdx = domain.Buy, askIdx
		case ratio.IsNegative() && ratio.LessThanOrEqual(s.cfg.PercentageThreshold.Neg()):
			dir, triggerIdx = domain.Sell, bidIdx
		default:
			continue
		}

		if s.currentPosition != 0 {
			continue
		}
		if s.cfg.MinLiquidityCheck > 0 && !s.hasLiquidity(dir) {
			continue
		}

		trigger := s.priceAtIndex(triggerIdx)
		s.emitBracketSignal(dir, trigger, ts)
		return
	}
}

// diagonalRatio implements the zero-compare policy and signed ratio
// computation; ok is false when this price level should be skipped.
func (s *FootprintDiagonalRatio) diagonalRatio(bidVol, askVol int64) (decimal.Decimal, bool) {
	dBid := decimal.NewFromInt(bidVol)
	dAsk := decimal.NewFromInt(askVol)

	if bidVol == 0 || askVol == 0 {
		if !s.cfg.EnableZeroCompares {
			return decimal.Zero, false
		}
		switch s.cfg.ZeroCompareAction {
		case domain.SetZeroToOne:
			if dBid.IsZero() {
				dBid = decimal.NewFromInt(1)
			}
			if dAsk.IsZero() {
				dAsk = decimal.NewFromInt(1)
			}
		case domain.SetPercent1000:
			if dBid.IsZero() {
				return decimal.NewFromInt(1000), true
			}
			return decimal.NewFromInt(-1000), true
		}
	}

	// The sign branch compares the raw, pre-zero-compare volumes (askVol vs.
	// bidVol), not dAsk/dBid — SET_0_TO_1 only patches the values fed into
	// the division below, it must not change which side is "ahead" (see
	// ask_vol_diag >= bid_vol in original_source/strategy/footprint_diagonal.py).
	hundred := decimal.NewFromInt(100)
	if askVol >= bidVol {
		if dBid.IsPositive() {
			return dAsk.DivRound(dBid, 12).Mul(hundred), true
		}
		return decimal.NewFromInt(1000), true
	}
	if dAsk.IsPositive() {
		return dBid.DivRound(dAsk, 12).Mul(hundred).Neg(), true
	}
	return decimal.NewFromInt(-1000), true
}

func (s *FootprintDiagonalRatio) hasLiquidity(dir domain.Side) bool {
	_, bidQty, _, askQty := s.book.BBO()
	if dir == domain.Buy {
		return askQty >= s.cfg.MinLiquidityCheck
	}
	return bidQty >= s.cfg.MinLiquidityCheck
}

func (s *FootprintDiagonalRatio) emitBracketSignal(dir domain.Side, trigger price.Price, ts int64) {
	stopDist := s.cfg.TickSize.Decimal().Mul(decimal.NewFromInt(int64(s.cfg.StopTicks)))
	targetDist := stopDist.Mul(s.cfg.RiskReward)

	var stop, target price.Price
	if dir == domain.Buy {
		stop = price.New(trigger.Decimal().Sub(stopDist))
		target = price.New(trigger.Decimal().Add(targetDist))
	} else {
		stop = price.New(trigger.Decimal().Add(stopDist))
		target = price.New(trigger.Decimal().Sub(targetDist))
	}

	sig := domain.NewSignal(ts, s.StrategyID, s.cfg.Symbol, dir, domain.Market, 1)
	sig.TriggerPrice = &trigger
	sig.LinkedStop = &stop
	sig.LinkedTarget = &target
	s.queue.Push(sig)
	metrics.SignalsEmitted.WithLabelValues(dir.String()).Inc()

	s.activeOrderID = "PENDING_ENTRY"
	s.logger.Info("footprint signal emitted", zap.String("strategy_id", s.StrategyID), zap.String("direction", dir.String()), zap.String("trigger", trigger.String()))
}

// OnFill updates the strategy's own position and releases the lock once
// flat again.
func (s *FootprintDiagonalRatio) OnFill(fill *domain.Fill) {
	if fill.StrategyID != s.StrategyID {
		return
	}
	s.currentPosition += fill.QtyFilled * fill.Dir.Dir()
	if s.currentPosition == 0 {
		s.activeOrderID = ""
	}
}

// OnOrderStatus releases the lock on terminal status of a top-level order
// (one with no parent); child exit orders never hold the lock themselves.
func (s *FootprintDiagonalRatio) OnOrderStatus(order *domain.Order) {
	if order.StrategyID != s.StrategyID {
		return
	}
	if order.Status.Terminal() && order.ParentOrderID == "" {
		s.activeOrderID = ""
	}
}
