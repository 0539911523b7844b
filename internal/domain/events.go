package domain

import (
	"github.com/shopspring/decimal"

	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// Kind is the event variant tag, also used as the secondary ordering key
// (kind_priority) when two events share the same timestamp: depth updates
// are applied before trades are observed, trades before the signals they
// provoke, signals before the orders they spawn, and orders before the
// fills they produce. Ties within a kind fall back to insertion sequence.
type Kind uint8

const (
	KindMarketDepth Kind = iota
	KindMarketTrade
	KindSignal
	KindOrder
	KindFill
)

func (k Kind) String() string {
	switch k {
	case KindMarketDepth:
		return "MARKET_DEPTH"
	case KindMarketTrade:
		return "MARKET_TRADE"
	case KindSignal:
		return "SIGNAL"
	case KindOrder:
		return "ORDER"
	case KindFill:
		return "FILL"
	default:
		return "UNKNOWN"
	}
}

// Event is the tagged union every scheduler entry satisfies. Timestamp,
// Kind, and Sequence together give the total order required by §3: events
// sort by (timestamp, kind priority, sequence).
type Event interface {
	Timestamp() int64
	Kind() Kind
	Sequence() uint64
	setSequence(uint64)
}

type base struct {
	ts  int64
	seq uint64
}

func (b *base) Timestamp() int64     { return b.ts }
func (b *base) Sequence() uint64     { return b.seq }
func (b *base) setSequence(s uint64) { b.seq = s }

// Less implements the total event order described above.
func Less(a, b Event) bool {
	if a.Timestamp() != b.Timestamp() {
		return a.Timestamp() < b.Timestamp()
	}
	if a.Kind() != b.Kind() {
		return a.Kind() < b.Kind()
	}
	return a.Sequence() < b.Sequence()
}

// MarketTrade is an exogenous trade print.
type MarketTrade struct {
	base
	Symbol string
	Price  price.Price
	Qty    int64
	Side   Side
}

func NewMarketTrade(ts int64, symbol string, p price.Price, qty int64, side Side) *MarketTrade {
	return &MarketTrade{base: base{ts: ts}, Symbol: symbol, Price: p, Qty: qty, Side: side}
}

func (e *MarketTrade) Kind() Kind { return KindMarketTrade }

// MarketDepth is an exogenous book-level update.
type MarketDepth struct {
	base
	Symbol    string
	Side      Side
	Price     price.Price
	Qty       int64
	NumOrders int
	Command   DepthCommand
	Flags     int
}

func NewMarketDepth(ts int64, symbol string, side Side, p price.Price, qty int64, numOrders int, cmd DepthCommand, flags int) *MarketDepth {
	return &MarketDepth{base: base{ts: ts}, Symbol: symbol, Side: side, Price: p, Qty: qty, NumOrders: numOrders, Command: cmd, Flags: flags}
}

func (e *MarketDepth) Kind() Kind { return KindMarketDepth }

// Signal is emitted by a strategy and consumed by the execution emulator,
// which turns it into an Order after applying the configured latencies.
type Signal struct {
	base
	StrategyID   string
	Symbol       string
	Dir          Side
	OrderType    OrderType
	Qty          int64
	LimitPrice   *price.Price
	StopPrice    *price.Price
	TriggerPrice *price.Price
	LinkedStop   *price.Price
	LinkedTarget *price.Price
}

func NewSignal(ts int64, strategyID, symbol string, dir Side, orderType OrderType, qty int64) *Signal {
	return &Signal{base: base{ts: ts}, StrategyID: strategyID, Symbol: symbol, Dir: dir, OrderType: orderType, Qty: qty}
}

func (e *Signal) Kind() Kind { return KindSignal }

// Order represents both the order-placement request (status PENDING_SUBMIT)
// and every subsequent status transition; execution mutates the order it
// owns and requeues lightweight status-update copies of it (see
// internal/execution).
type Order struct {
	base
	ID                string
	StrategyID        string
	Symbol            string
	Qty               int64
	OrderType         OrderType
	Dir               Side
	LimitPrice        *price.Price
	StopPrice         *price.Price
	FilledQty         int64
	Status            OrderStatus
	LinkedStopPrice   *price.Price
	LinkedTargetPrice *price.Price
	ParentOrderID     string
}

func NewOrder(ts int64, id, strategyID, symbol string, qty int64, orderType OrderType, dir Side) *Order {
	return &Order{base: base{ts: ts}, ID: id, StrategyID: strategyID, Symbol: symbol, Qty: qty, OrderType: orderType, Dir: dir, Status: PendingSubmit}
}

func (e *Order) Kind() Kind { return KindOrder }

// Clone returns a shallow copy of the order carrying a new timestamp and
// status, used to queue status-update events without aliasing the
// execution emulator's live order record.
func (e *Order) Clone(ts int64, status OrderStatus, filledQty int64) *Order {
	c := *e
	c.base = base{ts: ts}
	c.Status = status
	c.FilledQty = filledQty
	return &c
}

// Fill is emitted by the execution emulator whenever an order (fully or
// partially) trades.
type Fill struct {
	base
	OrderID           string
	StrategyID        string
	Symbol            string
	Dir               Side
	QtyFilled         int64
	FillPrice         price.Price
	Commission        decimal.Decimal
	LinkedStopPrice   *price.Price
	LinkedTargetPrice *price.Price
}

func NewFill(ts int64, orderID, strategyID, symbol string, dir Side, qtyFilled int64, fillPrice price.Price, commission decimal.Decimal) *Fill {
	return &Fill{base: base{ts: ts}, OrderID: orderID, StrategyID: strategyID, Symbol: symbol, Dir: dir, QtyFilled: qtyFilled, FillPrice: fillPrice, Commission: commission}
}

func (e *Fill) Kind() Kind { return KindFill }
