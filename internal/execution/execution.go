// Package execution simulates client-side order placement and fill
// generation against the live order book: latency-shifted entries, market
// and limit fills, stop triggers, and one-cancels-other bracket exits.
package execution

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderflow-labs/footprint-backtester/internal/book"
	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/metrics"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// Config carries the emulator's fixed parameters.
type Config struct {
	Symbol                string
	TickSize              price.TickSize
	CommissionPerContract decimal.Decimal
	LatencyDataToSignalNs int64
	LatencySignalToOrderNs int64
}

type pendingLimit struct {
	order     *domain.Order
	qtyAhead  int64
	qtyFilled int64
}

// linkage tracks the stop/target children spawned for one entry order, so
// that filling or triggering one cancels the other.
type linkage struct {
	stopID   string
	targetID string
}

// Engine is the execution emulator. It owns the pending-order tables and
// mutates the shared order book on market fills.
type Engine struct {
	cfg    Config
	book   *book.Book
	queue  *domain.EventQueue
	logger *zap.Logger

	submittedOrders   map[string]*domain.Order
	pendingLimits     map[string]*pendingLimit
	pendingStops      map[string]*domain.Order
	linkedExitOrders  map[string]*linkage

	orderSeq int64
}

// New constructs an execution emulator wired to the shared book and event
// queue.
func New(cfg Config, b *book.Book, queue *domain.EventQueue, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:              cfg,
		book:             b,
		queue:            queue,
		logger:           logger,
		submittedOrders:  make(map[string]*domain.Order),
		pendingLimits:    make(map[string]*pendingLimit),
		pendingStops:     make(map[string]*domain.Order),
		linkedExitOrders: make(map[string]*linkage),
	}
}

// generateOrderID mints the next id in the ENTRY_<n>_<ns> family mandated
// by spec §4.3: a monotonic per-engine counter plus the order's own
// (already latency-shifted) timestamp in nanoseconds.
func (e *Engine) generateOrderID(prefix string, ts int64) string {
	e.orderSeq++
	return fmt.Sprintf("%s_%d_%d", prefix, e.orderSeq, ts)
}

// updateOrderStatus queues a status-update copy of the owned order and,
// for terminal statuses, drops the live record.
func (e *Engine) updateOrderStatus(orderID string, status domain.OrderStatus, ts int64, filledQty int64) {
	original, ok := e.submittedOrders[orderID]
	if !ok {
		e.logger.Warn("status update for unknown order", zap.String("order_id", orderID), zap.String("status", status.String()))
		return
	}

	current := filledQty
	if status != domain.PartiallyFilled && status != domain.Filled {
		current = original.FilledQty
	}
	if status == domain.PartiallyFilled {
		original.FilledQty = current
	} else if status == domain.Filled {
		original.FilledQty = original.Qty
		current = original.Qty
	}

	e.queue.Push(original.Clone(ts, status, current))

	if status.Terminal() {
		delete(e.submittedOrders, orderID)
	}
}

func (e *Engine) rejectOrder(order *domain.Order, ts int64, reason string) {
	e.logger.Warn("order rejected", zap.String("order_id", order.ID), zap.String("reason", reason))
	metrics.OrdersRejected.WithLabelValues(reason).Inc()
	e.updateOrderStatus(order.ID, domain.Rejected, ts, order.FilledQty)
}

// ProcessSignal turns a strategy Signal into a PENDING_SUBMIT entry order,
// shifted by both configured latencies, and registers OCO linkage slots if
// the signal carries exit prices.
func (e *Engine) ProcessSignal(sig *domain.Signal) {
	arrival := sig.Timestamp() + e.cfg.LatencyDataToSignalNs + e.cfg.LatencySignalToOrderNs
	entryID := e.generateOrderID("ENTRY", arrival)

	entry := domain.NewOrder(arrival, entryID, sig.StrategyID, sig.Symbol, sig.Qty, sig.OrderType, sig.Dir)
	entry.LimitPrice = sig.LimitPrice
	entry.StopPrice = sig.StopPrice
	entry.LinkedStopPrice = sig.LinkedStop
	entry.LinkedTargetPrice = sig.LinkedTarget

	e.submittedOrders[entryID] = entry
	e.queue.Push(entry)

	if sig.LinkedStop != nil || sig.LinkedTarget != nil {
		e.linkedExitOrders[entryID] = &linkage{}
	}

	e.logger.Debug("signal scheduled as entry order", zap.String("order_id", entryID), zap.Int64("arrival_ts", arrival))
}

// ExecuteOrder accepts a PENDING_SUBMIT order and dispatches it by type.
func (e *Engine) ExecuteOrder(order *domain.Order) {
	e.updateOrderStatus(order.ID, domain.Accepted, order.Timestamp(), order.FilledQty)

	switch order.OrderType {
	case domain.Market:
		e.executeMarketOrder(order)
	case domain.Limit:
		e.placeLimitOrder(order)
	case domain.StopMarket:
		e.placeStopOrder(order)
	default:
		e.rejectOrder(order, order.Timestamp(), "unsupported order type")
	}
}

func (e *Engine) executeMarketOrder(order *domain.Order) {
	res := e.book.WalkLiquidity(order.Dir, order.Qty-order.FilledQty)
	if res.FilledQty == 0 {
		reason := fmt.Sprintf("no liquidity on %s side", order.Dir)
		e.rejectOrder(order, order.Timestamp(), reason)
		return
	}

	commission := e.cfg.CommissionPerContract.Mul(decimal.NewFromInt(res.FilledQty))
	fill := domain.NewFill(order.Timestamp(), order.ID, order.StrategyID, order.Symbol, order.Dir, res.FilledQty, res.AvgPrice, commission)
	fill.LinkedStopPrice = order.LinkedStopPrice
	fill.LinkedTargetPrice = order.LinkedTargetPrice
	e.queue.Push(fill)
	metrics.FillsEmitted.WithLabelValues(order.Dir.String()).Inc()

	totalFilled := order.FilledQty + res.FilledQty
	status := domain.PartiallyFilled
	if totalFilled == order.Qty {
		status = domain.Filled
	}
	e.updateOrderStatus(order.ID, status, order.Timestamp(), totalFilled)
}

func (e *Engine) placeLimitOrder(order *domain.Order) {
	if order.LimitPrice == nil {
		e.rejectOrder(order, order.Timestamp(), "limit price not specified")
		return
	}

	bidP, _, askP, _ := e.book.BBO()
	crosses := (order.Dir == domain.Buy && askP != nil && order.LimitPrice.GreaterOrEqual(*askP)) ||
		(order.Dir == domain.Sell && bidP != nil && order.LimitPrice.LessOrEqual(*bidP))
	if crosses {
		e.logger.Info("limit order crosses market, treating as market", zap.String("order_id", order.ID))
		e.executeMarketOrder(order)
		return
	}

	qtyBetter := e.book.QtyAhead(*order.LimitPrice, order.Dir)
	restingSide := order.Dir.Opposite()
	qtyAtLevel := int64(0)
	if lvl := e.book.Level(*order.LimitPrice, restingSide); lvl != nil {
		qtyAtLevel = lvl.Qty
	}

	e.pendingLimits[order.ID] = &pendingLimit{
		order:    order,
		qtyAhead: qtyBetter + qtyAtLevel,
		qtyFilled: 0,
	}
	e.logger.Debug("limit order resting", zap.String("order_id", order.ID), zap.Int64("qty_ahead", qtyBetter+qtyAtLevel))
}

func (e *Engine) placeStopOrder(order *domain.Order) {
	if order.StopPrice == nil {
		e.rejectOrder(order, order.Timestamp(), "stop price not specified")
		return
	}
	e.pendingStops[order.ID] = order
}

// CheckLimitFills applies the queue-position heuristic against a trade for
// every resting limit order on this symbol.
func (e *Engine) CheckLimitFills(trade *domain.MarketTrade) {
	if len(e.pendingLimits) == 0 {
		return
	}

	for orderID, data := range e.pendingLimits {
		order := data.order
		if order.Symbol != trade.Symbol {
			continue
		}

		canFillBuy := order.Dir == domain.Buy && trade.Side == domain.Sell && trade.Price.LessOrEqual(*order.LimitPrice)
		canFillSell := order.Dir == domain.Sell && trade.Side == domain.Buy && trade.Price.GreaterOrEqual(*order.LimitPrice)
		if !canFillBuy && !canFillSell {
			continue
		}

		qtyRemaining := order.Qty - data.qtyFilled
		var fillQty int64
		if trade.Price.Equal(*order.LimitPrice) {
			consumes := trade.Qty
			afterQueue := consumes - data.qtyAhead
			if afterQueue < 0 {
				afterQueue = 0
			}
			fillQty = afterQueue
			if fillQty > qtyRemaining {
				fillQty = qtyRemaining
			}
			data.qtyAhead -= consumes
			if data.qtyAhead < 0 {
				data.qtyAhead = 0
			}
		} else {
			// Trade printed through the limit: the queue ahead is
			// necessarily exhausted, so the rest of our order fills.
			fillQty = qtyRemaining
			data.qtyAhead = 0
		}

		if fillQty <= 0 {
			continue
		}

		data.qtyFilled += fillQty
		commission := e.cfg.CommissionPerContract.Mul(decimal.NewFromInt(fillQty))
		fill := domain.NewFill(trade.Timestamp(), orderID, order.StrategyID, order.Symbol, order.Dir, fillQty, *order.LimitPrice, commission)
		e.queue.Push(fill)
		metrics.FillsEmitted.WithLabelValues(order.Dir.String()).Inc()

		if data.qtyFilled >= order.Qty {
			delete(e.pendingLimits, orderID)
			e.updateOrderStatus(orderID, domain.Filled, trade.Timestamp(), data.qtyFilled)
			e.cancelLinkedStop(order, trade.Timestamp())
		} else {
			e.updateOrderStatus(orderID, domain.PartiallyFilled, trade.Timestamp(), data.qtyFilled)
		}
	}
}

// CheckStopTriggers fires any resting stop whose trigger condition the
// trade satisfies, spawning a follow-up market order for the remaining
// quantity.
func (e *Engine) CheckStopTriggers(trade *domain.MarketTrade) {
	if len(e.pendingStops) == 0 {
		return
	}

	for orderID, order := range e.pendingStops {
		if order.Symbol != trade.Symbol {
			continue
		}

		triggered := (order.Dir == domain.Sell && trade.Price.LessOrEqual(*order.StopPrice)) ||
			(order.Dir == domain.Buy && trade.Price.GreaterOrEqual(*order.StopPrice))
		if !triggered {
			continue
		}

		delete(e.pendingStops, orderID)
		e.updateOrderStatus(orderID, domain.Triggered, trade.Timestamp(), order.FilledQty)
		e.cancelLinkedTarget(order, trade.Timestamp())

		remaining := order.Qty - order.FilledQty
		if remaining <= 0 {
			continue
		}

		childID := orderID + "_MKT"
		child := domain.NewOrder(trade.Timestamp()+e.cfg.LatencySignalToOrderNs, childID, order.StrategyID, order.Symbol, remaining, domain.Market, order.Dir)
		child.ParentOrderID = orderID
		e.submittedOrders[childID] = child
		e.queue.Push(child)
	}
}

// ActivateLinkedExits creates the stop and/or target children for an
// entry's Fill, once per entry, sharing parent_order_id with the entry.
func (e *Engine) ActivateLinkedExits(fill *domain.Fill) {
	link, ok := e.linkedExitOrders[fill.OrderID]
	if !ok {
		return
	}

	exitDir := fill.Dir.Opposite()
	now := fill.Timestamp() + e.cfg.LatencySignalToOrderNs

	if fill.LinkedStopPrice != nil && link.stopID == "" {
		stopID := e.generateOrderID("STOP", now)
		link.stopID = stopID
		stopOrder := domain.NewOrder(now, stopID, fill.StrategyID, fill.Symbol, fill.QtyFilled, domain.StopMarket, exitDir)
		stopOrder.StopPrice = fill.LinkedStopPrice
		stopOrder.ParentOrderID = fill.OrderID
		e.submittedOrders[stopID] = stopOrder
		e.queue.Push(stopOrder)
	}

	if fill.LinkedTargetPrice != nil && link.targetID == "" {
		targetID := e.generateOrderID("TARGET", now)
		link.targetID = targetID
		targetOrder := domain.NewOrder(now, targetID, fill.StrategyID, fill.Symbol, fill.QtyFilled, domain.Limit, exitDir)
		targetOrder.LimitPrice = fill.LinkedTargetPrice
		targetOrder.ParentOrderID = fill.OrderID
		e.submittedOrders[targetID] = targetOrder
		e.queue.Push(targetOrder)
	}
}

// cancelLinkedStop is called when a target (limit) exit fills; it cancels
// the sibling stop and releases the linkage record. The order object is
// taken directly from the caller rather than re-looked-up from
// submittedOrders, since updateOrderStatus may have already evicted the
// terminal order by the time this runs.
func (e *Engine) cancelLinkedStop(filledTarget *domain.Order, ts int64) {
	entryID := filledTarget.ParentOrderID
	link, ok := e.linkedExitOrders[entryID]
	if !ok {
		return
	}
	if link.stopID != "" {
		if stop, ok := e.pendingStops[link.stopID]; ok {
			delete(e.pendingStops, link.stopID)
			e.updateOrderStatus(stop.ID, domain.Cancelled, ts, stop.FilledQty)
		}
	}
	delete(e.linkedExitOrders, entryID)
}

// cancelLinkedTarget is the symmetric cancellation on stop trigger.
func (e *Engine) cancelLinkedTarget(triggeredStop *domain.Order, ts int64) {
	entryID := triggeredStop.ParentOrderID
	link, ok := e.linkedExitOrders[entryID]
	if !ok {
		return
	}
	if link.targetID != "" {
		if data, ok := e.pendingLimits[link.targetID]; ok {
			delete(e.pendingLimits, link.targetID)
			e.updateOrderStatus(data.order.ID, domain.Cancelled, ts, data.order.FilledQty)
		}
	}
	delete(e.linkedExitOrders, entryID)
}
