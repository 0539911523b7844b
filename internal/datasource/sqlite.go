// Package datasource adapts the read-only tick store into the
// controller's MarketSource interface: a timestamp-merged stream of trade
// and depth events, plus a synthetic-scenario source used by the
// end-to-end tests.
package datasource

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// SQLiteSource reads two ascending-timestamp cursors, `{symbol}_tas` and
// `{symbol}_depth`, off a gorm-backed SQLite connection and presents them
// as a single timestamp-merged MarketSource.
type SQLiteSource struct {
	symbol        string
	sideFromFlags domain.SideFromFlagsFunc
	logger        *zap.Logger

	tradeRows *sql.Rows
	depthRows *sql.Rows

	nextTrade *domain.MarketTrade
	nextDepth *domain.MarketDepth
}

// Open executes the TAS/depth queries for symbol and primes the lookahead
// buffers. The caller owns db and is responsible for closing it; Open
// fails fatally (per spec §7, a data-source connection error is the one
// irrecoverable error class) if either query cannot be executed.
func Open(db *gorm.DB, symbol string, sideFromFlags domain.SideFromFlagsFunc, logger *zap.Logger) (*SQLiteSource, error) {
	tableSymbol := strings.ReplaceAll(symbol, "-", "_")
	tasTable := tableSymbol + "_tas"
	depthTable := tableSymbol + "_depth"

	tradeRows, err := db.Raw(fmt.Sprintf("SELECT timestamp, price, qty, side FROM %s ORDER BY timestamp ASC", tasTable)).Rows()
	if err != nil {
		return nil, fmt.Errorf("datasource: query %s: %w", tasTable, err)
	}
	depthRows, err := db.Raw(fmt.Sprintf("SELECT timestamp, command, flags, num_orders, price, qty FROM %s ORDER BY timestamp ASC", depthTable)).Rows()
	if err != nil {
		tradeRows.Close()
		return nil, fmt.Errorf("datasource: query %s: %w", depthTable, err)
	}

	s := &SQLiteSource{
		symbol:        symbol,
		sideFromFlags: sideFromFlags,
		logger:        logger,
		tradeRows:     tradeRows,
		depthRows:     depthRows,
	}
	s.advanceTrade()
	s.advanceDepth()
	return s, nil
}

// Close releases the underlying cursors.
func (s *SQLiteSource) Close() error {
	err1 := s.tradeRows.Close()
	err2 := s.depthRows.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// advanceTrade scans the next parseable trade row into nextTrade, or
// leaves it nil once the cursor is exhausted. Rows that fail to parse are
// logged and skipped without stalling the stream.
func (s *SQLiteSource) advanceTrade() {
	for s.tradeRows.Next() {
		var ts int64
		var priceStr string
		var qty int64
		var sideCode int
		if err := s.tradeRows.Scan(&ts, &priceStr, &qty, &sideCode); err != nil {
			s.logger.Warn("skipping unparseable trade row", zap.Error(err))
			continue
		}
		p, err := price.FromString(priceStr)
		if err != nil {
			s.logger.Warn("skipping trade row with bad price", zap.String("price", priceStr), zap.Error(err))
			continue
		}
		side := domain.Buy
		if sideCode == int(domain.Sell) {
			side = domain.Sell
		}
		s.nextTrade = domain.NewMarketTrade(ts, s.symbol, p, qty, side)
		return
	}
	s.nextTrade = nil
}

// advanceDepth is the depth-row counterpart of advanceTrade, additionally
// resolving unknown command codes to UPDATE with a warning.
func (s *SQLiteSource) advanceDepth() {
	for s.depthRows.Next() {
		var ts int64
		var commandCode int
		var flags int
		var numOrders int
		var priceStr string
		var qty int64
		if err := s.depthRows.Scan(&ts, &commandCode, &flags, &numOrders, &priceStr, &qty); err != nil {
			s.logger.Warn("skipping unparseable depth row", zap.Error(err))
			continue
		}
		p, err := price.FromString(priceStr)
		if err != nil {
			s.logger.Warn("skipping depth row with bad price", zap.String("price", priceStr), zap.Error(err))
			continue
		}
		cmd, ok := domain.ParseDepthCommand(commandCode)
		if !ok {
			s.logger.Warn("unknown depth command code, treating as UPDATE", zap.Int("code", commandCode))
		}
		side := s.sideFromFlags(flags)
		s.nextDepth = domain.NewMarketDepth(ts, s.symbol, side, p, qty, numOrders, cmd, flags)
		return
	}
	s.nextDepth = nil
}

// Peek returns the chronologically earlier of the two buffered rows
// without consuming it.
func (s *SQLiteSource) Peek() (domain.Event, bool) {
	switch {
	case s.nextTrade == nil && s.nextDepth == nil:
		return nil, false
	case s.nextTrade == nil:
		return s.nextDepth, true
	case s.nextDepth == nil:
		return s.nextTrade, true
	case s.nextDepth.Timestamp() < s.nextTrade.Timestamp():
		return s.nextDepth, true
	default:
		return s.nextTrade, true
	}
}

// Next returns and consumes the same event Peek would have returned.
func (s *SQLiteSource) Next() (domain.Event, bool) {
	ev, ok := s.Peek()
	if !ok {
		return nil, false
	}
	if ev == domain.Event(s.nextDepth) {
		s.advanceDepth()
	} else {
		s.advanceTrade()
	}
	return ev, true
}
