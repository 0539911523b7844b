// Package book implements the depth-driven limit order book: sorted
// bid/ask ladders, BBO, per-level queries, queue-ahead estimation, and
// liquidity walking for market-order fills.
package book

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// Level is one price level: the resting quantity and order count at Price.
type Level struct {
	Price     price.Price
	Qty       int64
	NumOrders int
}

// ladder is a price-ordered set of Levels. less defines "comes first" in
// Scan order, which is always "best price first" for the ladder it backs:
// descending for bids, ascending for asks.
type ladder struct {
	tree *btree.BTreeG[*Level]
}

func newLadder(less func(a, b *Level) bool) *ladder {
	return &ladder{tree: btree.NewBTreeG(less)}
}

func (l *ladder) get(p price.Price) (*Level, bool) {
	return l.tree.Get(&Level{Price: p})
}

func (l *ladder) set(lvl *Level) { l.tree.Set(lvl) }

func (l *ladder) delete(p price.Price) { l.tree.Delete(&Level{Price: p}) }

func (l *ladder) best() (*Level, bool) { return l.tree.Min() }

func (l *ladder) len() int { return l.tree.Len() }

// scan visits levels best-price-first until iter returns false.
func (l *ladder) scan(iter func(*Level) bool) { l.tree.Scan(iter) }

// Book is the live order book for a single symbol.
type Book struct {
	Symbol         string
	tickSize       price.TickSize
	bids           *ladder
	asks           *ladder
	lastUpdateTime int64
	logger         *zap.Logger
}

// New constructs an empty order book for symbol.
func New(symbol string, tickSize price.TickSize, logger *zap.Logger) *Book {
	return &Book{
		Symbol:   symbol,
		tickSize: tickSize,
		bids:     newLadder(func(a, b *Level) bool { return a.Price.GreaterThan(b.Price) }),
		asks:     newLadder(func(a, b *Level) bool { return a.Price.LessThan(b.Price) }),
		logger:   logger,
	}
}

// SeedSyntheticBook installs the ten-level synthetic ladder used by the
// end-to-end test scenarios (§8-init): bids[5950.00 - i*tick] = qty 100*(10-i),
// asks[5950.00 + tick + i*tick] = qty 100*(i+1), for i in [0,10).
func (b *Book) SeedSyntheticBook() {
	base := price.MustFromString("5950.00")
	for i := 0; i < 10; i++ {
		bidPrice := b.tickSize.Add(base, -i)
		b.bids.set(&Level{Price: bidPrice, Qty: int64(100 * (10 - i)), NumOrders: 5})
		askPrice := b.tickSize.Add(base, i+1)
		b.asks.set(&Level{Price: askPrice, Qty: int64(100 * (i + 1)), NumOrders: 5})
	}
}

// ApplyDepth mutates the book per a MarketDepth event, or no-ops if the
// event targets a different symbol or is stale (timestamp before the last
// applied update).
func (b *Book) ApplyDepth(e *domain.MarketDepth) {
	if e.Symbol != b.Symbol || e.Timestamp() < b.lastUpdateTime {
		return
	}
	b.lastUpdateTime = e.Timestamp()

	// Side.SELL in this dialect denotes the bid ladder, Side.BUY the ask
	// ladder (see domain.DefaultSideFromFlags).
	side := b.bids
	if e.Side == domain.Buy {
		side = b.asks
	}

	switch {
	case e.Command == domain.CommandDelete, e.Command == domain.CommandUpdate && e.Qty <= 0:
		side.delete(e.Price)
	case e.Command == domain.CommandInsert, e.Command == domain.CommandUpdate:
		if e.Qty > 0 {
			side.set(&Level{Price: e.Price, Qty: e.Qty, NumOrders: e.NumOrders})
		} else {
			side.delete(e.Price)
		}
	}

	b.checkCrossed()
}

func (b *Book) checkCrossed() {
	bid, bidOK := b.bids.best()
	ask, askOK := b.asks.best()
	if bidOK && askOK && bid.Price.GreaterOrEqual(ask.Price) {
		if b.logger != nil {
			b.logger.Warn("order book crossed",
				zap.String("symbol", b.Symbol),
				zap.Int64("ts", b.lastUpdateTime),
				zap.String("best_bid", bid.Price.String()),
				zap.String("best_ask", ask.Price.String()),
			)
		}
	}
}

// LastUpdateTime returns the timestamp of the most recent non-stale depth
// event applied to the book.
func (b *Book) LastUpdateTime() int64 { return b.lastUpdateTime }

// BBO returns best bid/ask price and quantity; a nil price means that side
// is empty.
func (b *Book) BBO() (bidPrice *price.Price, bidQty int64, askPrice *price.Price, askQty int64) {
	if lvl, ok := b.bids.best(); ok {
		p := lvl.Price
		bidPrice, bidQty = &p, lvl.Qty
	}
	if lvl, ok := b.asks.best(); ok {
		p := lvl.Price
		askPrice, askQty = &p, lvl.Qty
	}
	return
}

// Level returns the level data at price p on side (domain.Sell => bids,
// domain.Buy => asks, matching the book's internal dialect), or nil if
// there is no resting quantity there.
func (b *Book) Level(p price.Price, side domain.Side) *Level {
	ladder := b.bids
	if side == domain.Buy {
		ladder = b.asks
	}
	lvl, ok := ladder.get(p)
	if !ok {
		return nil
	}
	cp := *lvl
	return &cp
}

// QtyAhead sums the quantity resting at strictly better prices than p, on
// the ladder a resting order of orderSide would join: BUY rests on bids
// (better = higher price), SELL rests on asks (better = lower price).
func (b *Book) QtyAhead(p price.Price, orderSide domain.Side) int64 {
	var ladder *ladder
	var better func(levelPrice price.Price) bool
	if orderSide == domain.Buy {
		ladder = b.bids
		better = func(lp price.Price) bool { return lp.GreaterThan(p) }
	} else {
		ladder = b.asks
		better = func(lp price.Price) bool { return lp.LessThan(p) }
	}
	var total int64
	ladder.scan(func(lvl *Level) bool {
		if !better(lvl.Price) {
			return false
		}
		total += lvl.Qty
		return true
	})
	return total
}

// WalkResult is the outcome of consuming resting liquidity for a market
// order.
type WalkResult struct {
	FilledQty   int64
	AvgPrice    price.Price
	TotalValue  price.Price // sum(price*qty) across consumed levels
}

// WalkLiquidity consumes up to qty contracts starting from the best price
// on the opposite side of side (a BUY order walks the ask ladder, a SELL
// order walks the bid ladder), mutating the consumed levels and deleting
// any level fully drained.
func (b *Book) WalkLiquidity(side domain.Side, qty int64) WalkResult {
	ladder := b.asks
	if side == domain.Sell {
		ladder = b.bids
	}

	remaining := qty
	filled := int64(0)
	totalValue := price.Zero
	var drained []price.Price

	ladder.scan(func(lvl *Level) bool {
		if remaining <= 0 {
			return false
		}
		take := lvl.Qty
		if take > remaining {
			take = remaining
		}
		filled += take
		totalValue = totalValue.Add(lvl.Price.MulInt(take))
		remaining -= take
		lvl.Qty -= take
		if lvl.Qty <= 0 {
			drained = append(drained, lvl.Price)
		}
		return remaining > 0
	})

	for _, p := range drained {
		ladder.delete(p)
	}

	res := WalkResult{FilledQty: filled, TotalValue: totalValue}
	if filled > 0 {
		res.AvgPrice = price.New(totalValue.Decimal().DivRound(decimal.NewFromInt(filled), 12))
	}
	return res
}

// String renders the book's top level on each side, useful for log lines.
func (b *Book) String() string {
	bidP, bidQ, askP, askQ := b.BBO()
	bidStr, askStr := "-", "-"
	if bidP != nil {
		bidStr = fmt.Sprintf("%s x %d", bidP.String(), bidQ)
	}
	if askP != nil {
		askStr = fmt.Sprintf("%s x %d", askP.String(), askQ)
	}
	return fmt.Sprintf("%s bid=%s ask=%s", b.Symbol, bidStr, askStr)
}
