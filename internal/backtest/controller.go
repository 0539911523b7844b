// Package backtest wires the order book, execution emulator, portfolio,
// and strategy together behind a single event-priority-queue dispatch
// loop: the backtest controller.
package backtest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/orderflow-labs/footprint-backtester/internal/book"
	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/execution"
	"github.com/orderflow-labs/footprint-backtester/internal/metrics"
	"github.com/orderflow-labs/footprint-backtester/internal/portfolio"
	"github.com/orderflow-labs/footprint-backtester/internal/strategy"
)

// MarketSource is the exogenous event stream the controller drains
// lazily into its event queue. Implementations must yield events in
// non-decreasing timestamp order and must already have absorbed any
// row-level parse errors (skip-with-warning happens below this
// interface, not above it).
type MarketSource interface {
	Peek() (domain.Event, bool)
	Next() (domain.Event, bool)
}

// Controller runs the merged-stream dispatch loop described in spec §4.1.
type Controller struct {
	Symbol      string
	queue       *domain.EventQueue
	book        *book.Book
	portfolio   *portfolio.Portfolio
	execution   *execution.Engine
	strategy    *strategy.FootprintDiagonalRatio
	source      MarketSource
	maxEvents   int
	currentTime int64
	logger      *zap.Logger
}

// New constructs a controller from its already-built components. The
// event queue is shared: execution and strategy push into the same
// *domain.EventQueue the controller drains from.
func New(symbol string, queue *domain.EventQueue, b *book.Book, p *portfolio.Portfolio, e *execution.Engine, s *strategy.FootprintDiagonalRatio, source MarketSource, maxEvents int, logger *zap.Logger) *Controller {
	return &Controller{
		Symbol:    symbol,
		queue:     queue,
		book:      b,
		portfolio: p,
		execution: e,
		strategy:  s,
		source:    source,
		maxEvents: maxEvents,
		logger:    logger,
	}
}

// CurrentTime returns the timestamp of the most recently dispatched
// event.
func (c *Controller) CurrentTime() int64 { return c.currentTime }

// Run drains the merged stream until both the exogenous source and the
// event queue are exhausted, the optional max-events bound is hit, or ctx
// is cancelled. A final equity sample is always recorded before
// returning.
func (c *Controller) Run(ctx context.Context) error {
	count := 0
	defer c.portfolio.FinalizeEquity(c.currentTime)

	for {
		select {
		case <-ctx.Done():
			c.logger.Warn("backtest interrupted", zap.Int("events_processed", count))
			return ctx.Err()
		default:
		}

		c.drainSource()

		ev := c.queue.Pop()
		if ev == nil {
			return nil
		}

		c.currentTime = ev.Timestamp()
		count++
		dispatchStart := time.Now()
		c.dispatch(ev)
		metrics.LoopEventLatency.Observe(time.Since(dispatchStart).Seconds())
		metrics.EventsDispatched.WithLabelValues(ev.Kind().String()).Inc()

		if c.maxEvents > 0 && count >= c.maxEvents {
			return nil
		}
	}
}

// drainSource pulls exogenous events into the queue while the source's
// next timestamp does not exceed the queue's earliest pending timestamp,
// so Pop() always returns the true chronological minimum across both
// producers without a one-shot merge.
func (c *Controller) drainSource() {
	for {
		next, ok := c.source.Peek()
		if !ok {
			return
		}
		if head := c.queue.Peek(); head != nil && head.Timestamp() < next.Timestamp() {
			return
		}
		ev, _ := c.source.Next()
		c.queue.Push(ev)
	}
}

func (c *Controller) dispatch(ev domain.Event) {
	switch ev.Kind() {
	case domain.KindMarketDepth:
		c.book.ApplyDepth(ev.(*domain.MarketDepth))

	case domain.KindMarketTrade:
		trade := ev.(*domain.MarketTrade)
		c.portfolio.UpdateMarketPrice(trade)
		c.strategy.OnMarketData(trade)
		c.execution.CheckLimitFills(trade)
		c.execution.CheckStopTriggers(trade)

	case domain.KindSignal:
		c.execution.ProcessSignal(ev.(*domain.Signal))

	case domain.KindOrder:
		order := ev.(*domain.Order)
		if order.Status == domain.PendingSubmit {
			c.execution.ExecuteOrder(order)
		} else {
			c.portfolio.OnOrderStatus(order)
			c.strategy.OnOrderStatus(order)
		}

	case domain.KindFill:
		fill := ev.(*domain.Fill)
		c.portfolio.UpdateFill(fill)
		c.strategy.OnFill(fill)
		c.execution.ActivateLinkedExits(fill)
	}
}
