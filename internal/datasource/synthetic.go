package datasource

import (
	"strings"

	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// SyntheticSource replays a fixed, hand-built event sequence in place of
// the SQLite stream, used by the `test_scenario` config option and by the
// end-to-end scenario tests (spec §8).
type SyntheticSource struct {
	events []domain.Event
	pos    int
}

// NewSyntheticScenario builds one of the four named end-to-end scenarios:
// long_target, long_stop, short_target, short_stop. The strategy id must
// match the running strategy's, since the injected Signal is consumed by
// the execution emulator directly (it bypasses the strategy entirely).
func NewSyntheticScenario(scenario, symbol, strategyID string) *SyntheticSource {
	basePrice := price.MustFromString("5950.50")

	var dir domain.Side
	var trigger, stop, target price.Price
	if strings.Contains(scenario, "short") {
		dir, trigger, stop, target = domain.Sell, price.MustFromString("5950.75"), price.MustFromString("5953.50"), price.MustFromString("5943.875")
	} else {
		dir, trigger, stop, target = domain.Buy, price.MustFromString("5950.25"), price.MustFromString("5947.50"), price.MustFromString("5956.625")
	}

	exitPrice := stop
	if strings.Contains(scenario, "target") {
		// The target limit rests behind every better-priced level of the
		// synthetic book (thousands of contracts of queue ahead), so a
		// 10-lot printing exactly at the target never reaches it. The exit
		// trade prints one tick through the target instead, which the
		// queue-position heuristic fills in full at the limit price.
		oneTick := price.MustFromString("0.25")
		exitPrice = target.Add(oneTick)
		if dir == domain.Sell {
			exitPrice = target.Sub(oneTick)
		}
	}
	// The resting exit order (stop or target) is placed in the opposite
	// direction of the entry, so the trade that fills it must aggress from
	// the entry's own side: a long's SELL-side exit needs a BUY trade at or
	// through its price, a short's BUY-side exit needs a SELL trade (see
	// can_fill_buy/can_fill_sell in original_source/core/execution.py, which
	// CheckLimitFills mirrors). Using dir.Opposite() here would make the
	// exit trade unable to ever satisfy its own fill condition.
	aggressor := dir

	sig := domain.NewSignal(2, strategyID, symbol, dir, domain.Market, 1)
	sig.TriggerPrice = &trigger
	sig.LinkedStop = &stop
	sig.LinkedTarget = &target

	// The exit trade's timestamp is chosen comfortably after the entry's
	// two configured latencies plus the linked-exit activation latency, so
	// the stop/target children are already resting by the time it arrives
	// (see DESIGN.md: synthetic scenario timestamps are causally spaced,
	// unlike the original's illustrative ts=1/2/3).
	events := []domain.Event{
		domain.NewMarketTrade(0, symbol, basePrice, 1, domain.Buy),
		sig,
		domain.NewMarketTrade(2_000_000, symbol, exitPrice, 10, aggressor),
	}
	return &SyntheticSource{events: events}
}

func (s *SyntheticSource) Peek() (domain.Event, bool) {
	if s.pos >= len(s.events) {
		return nil, false
	}
	return s.events[s.pos], true
}

func (s *SyntheticSource) Next() (domain.Event, bool) {
	ev, ok := s.Peek()
	if !ok {
		return nil, false
	}
	s.pos++
	return ev, true
}
