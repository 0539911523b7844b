// Package portfolio accounts for cash, directional positions, realized
// and unrealized P&L, the equity curve, and the closed-trade log.
package portfolio

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// Direction labels an open position for the trade log.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// OpenPosition is the live entry record for a symbol's current position.
type OpenPosition struct {
	EntryTime  int64
	EntryPrice price.Price
	Qty        int64
	Direction  Direction
	Commission decimal.Decimal
}

// ClosedTrade is one completed round-trip, appended to the trade log
// whenever a fill closes or flips an open position. A fill that only
// reduces a position without closing it appends no record.
type ClosedTrade struct {
	Symbol     string
	EntryTime  int64
	ExitTime   int64
	Direction  Direction
	EntryPrice price.Price
	ExitPrice  price.Price
	QtyClosed  int64
	PnL        decimal.Decimal
	Commission decimal.Decimal
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp int64
	Equity    decimal.Decimal
}

// Portfolio tracks one backtest run's cash, positions, and P&L.
type Portfolio struct {
	tickSize  price.TickSize
	tickValue price.TickValue
	logger    *zap.Logger

	Cash         decimal.Decimal
	RealizedPnL  decimal.Decimal
	Holdings     map[string]int64
	AvgPrice     map[string]price.Price
	OpenPos      map[string]OpenPosition
	LastPrice    map[string]price.Price
	EquityCurve  []EquityPoint
	TradeLog     []ClosedTrade
}

// New constructs a portfolio seeded with initialCapital cash and a single
// equity-curve point at (ts=0, initialCapital).
func New(initialCapital decimal.Decimal, tickSize price.TickSize, tickValue price.TickValue, logger *zap.Logger) *Portfolio {
	return &Portfolio{
		tickSize:    tickSize,
		tickValue:   tickValue,
		logger:      logger,
		Cash:        initialCapital,
		RealizedPnL: decimal.Zero,
		Holdings:    make(map[string]int64),
		AvgPrice:    make(map[string]price.Price),
		OpenPos:     make(map[string]OpenPosition),
		LastPrice:   make(map[string]price.Price),
		EquityCurve: []EquityPoint{{Timestamp: 0, Equity: initialCapital}},
	}
}

// UpdateMarketPrice records the last traded price for a symbol, used for
// mark-to-market unrealized P&L.
func (p *Portfolio) UpdateMarketPrice(trade *domain.MarketTrade) {
	p.LastPrice[trade.Symbol] = trade.Price
}

// UpdateFill applies a fill's cash, position, and P&L effects, then
// refreshes the equity curve.
func (p *Portfolio) UpdateFill(fill *domain.Fill) {
	symbol := fill.Symbol
	dir := fill.Dir.Dir()
	posChange := fill.QtyFilled * dir

	notional := fill.FillPrice.MulInt(fill.QtyFilled * dir)
	p.Cash = p.Cash.Sub(notional.Decimal()).Sub(fill.Commission)

	currentPos := p.Holdings[symbol]
	newPos := currentPos + posChange

	switch {
	case currentPos != 0 && newPos*currentPos <= 0:
		p.closeOrFlip(fill, symbol, currentPos, newPos, posChange)
	case newPos != 0:
		p.openOrAdd(fill, symbol, currentPos, newPos, posChange)
	}

	if newPos == 0 {
		delete(p.Holdings, symbol)
	} else {
		p.Holdings[symbol] = newPos
	}
	p.updateEquity(fill.Timestamp())
}

func (p *Portfolio) closeOrFlip(fill *domain.Fill, symbol string, currentPos, newPos, posChange int64) {
	qtyClosed := currentPos
	if qtyClosed < 0 {
		qtyClosed = -qtyClosed
	}
	if fill.QtyFilled < qtyClosed {
		qtyClosed = fill.QtyFilled
	}

	entry, ok := p.OpenPos[symbol]
	if !ok {
		return
	}

	pnlDir := int64(1)
	if entry.Direction == Short {
		pnlDir = -1
	}
	delta := fill.FillPrice.Sub(entry.EntryPrice)
	pnl := price.PnLCurrency(delta, p.tickSize, p.tickValue, pnlDir*qtyClosed)
	p.RealizedPnL = p.RealizedPnL.Add(pnl)

	p.TradeLog = append(p.TradeLog, ClosedTrade{
		Symbol:     symbol,
		EntryTime:  entry.EntryTime,
		ExitTime:   fill.Timestamp(),
		Direction:  entry.Direction,
		EntryPrice: entry.EntryPrice,
		ExitPrice:  fill.FillPrice,
		QtyClosed:  qtyClosed,
		PnL:        pnl,
		Commission: entry.Commission.Add(fill.Commission),
	})

	if newPos == 0 {
		delete(p.OpenPos, symbol)
		delete(p.AvgPrice, symbol)
		return
	}

	newDir := Long
	if newPos < 0 {
		newDir = Short
	}
	p.AvgPrice[symbol] = fill.FillPrice
	p.OpenPos[symbol] = OpenPosition{
		EntryTime:  fill.Timestamp(),
		EntryPrice: fill.FillPrice,
		Qty:        newPos,
		Direction:  newDir,
		Commission: fill.Commission,
	}
}

func (p *Portfolio) openOrAdd(fill *domain.Fill, symbol string, currentPos, newPos, posChange int64) {
	if currentPos == 0 {
		dir := Long
		if newPos < 0 {
			dir = Short
		}
		p.AvgPrice[symbol] = fill.FillPrice
		p.OpenPos[symbol] = OpenPosition{
			EntryTime:  fill.Timestamp(),
			EntryPrice: fill.FillPrice,
			Qty:        newPos,
			Direction:  dir,
			Commission: fill.Commission,
		}
		return
	}

	oldAvg := p.AvgPrice[symbol]
	oldVal := oldAvg.MulInt(currentPos)
	newVal := fill.FillPrice.MulInt(posChange)
	avg := price.New(oldVal.Decimal().Add(newVal.Decimal()).DivRound(decimal.NewFromInt(newPos), 12))
	p.AvgPrice[symbol] = avg

	pos := p.OpenPos[symbol]
	pos.Qty = newPos
	pos.Commission = pos.Commission.Add(fill.Commission)
	p.OpenPos[symbol] = pos
}

// OnOrderStatus is a no-op observation hook; the portfolio only reacts to
// fills, but status updates are logged for traceability.
func (p *Portfolio) OnOrderStatus(order *domain.Order) {
	p.logger.Debug("order status noted", zap.String("order_id", order.ID), zap.String("status", order.Status.String()))
}

// updateEquity appends a new equity-curve sample, or overwrites the tail
// sample if it shares the same timestamp and the value actually changed.
func (p *Portfolio) updateEquity(ts int64) {
	unrealized := decimal.Zero
	for symbol, qty := range p.Holdings {
		if qty == 0 {
			continue
		}
		last, hasLast := p.LastPrice[symbol]
		avg, hasAvg := p.AvgPrice[symbol]
		if !hasLast || !hasAvg {
			continue
		}
		unrealized = unrealized.Add(price.PnLCurrency(last.Sub(avg), p.tickSize, p.tickValue, qty))
	}

	equity := p.Cash.Add(unrealized)

	if len(p.EquityCurve) == 0 || p.EquityCurve[len(p.EquityCurve)-1].Timestamp < ts {
		p.EquityCurve = append(p.EquityCurve, EquityPoint{Timestamp: ts, Equity: equity})
		return
	}
	tail := &p.EquityCurve[len(p.EquityCurve)-1]
	if !tail.Equity.Equal(equity) {
		tail.Timestamp = ts
		tail.Equity = equity
	}
}

// Equity returns the most recently recorded equity value.
func (p *Portfolio) Equity() decimal.Decimal {
	if len(p.EquityCurve) == 0 {
		return decimal.Zero
	}
	return p.EquityCurve[len(p.EquityCurve)-1].Equity
}

// FinalizeEquity forces one last equity sample at ts, used by the
// controller at loop exit.
func (p *Portfolio) FinalizeEquity(ts int64) {
	p.updateEquity(ts)
}
