// Package metrics holds the Prometheus collectors shared across the
// backtester. Every collector is registered once in init(); callers just
// reference the package vars from the hot path.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// EventsDispatched counts events the controller has dispatched, by kind.
var EventsDispatched = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "footprint_events_dispatched_total",
		Help: "Total number of events dispatched by the backtest loop, by kind",
	},
	[]string{"kind"},
)

// FillsEmitted counts fills produced by the execution emulator, by side.
var FillsEmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "footprint_fills_emitted_total",
		Help: "Total number of fills emitted by the execution emulator",
	},
	[]string{"side"},
)

// OrdersRejected counts order rejections, by reason.
var OrdersRejected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "footprint_orders_rejected_total",
		Help: "Total number of orders rejected by the execution emulator",
	},
	[]string{"reason"},
)

// SignalsEmitted counts signals produced by the strategy, by direction.
var SignalsEmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "footprint_signals_emitted_total",
		Help: "Total number of entry signals emitted by the footprint strategy",
	},
	[]string{"direction"},
)

// LoopEventLatency observes wall-clock time spent dispatching a single
// event, useful for spotting pathological replay slowdowns.
var LoopEventLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "footprint_loop_event_latency_seconds",
		Help:    "Wall-clock time to dispatch a single event",
		Buckets: prometheus.DefBuckets,
	},
)

func init() {
	prometheus.MustRegister(EventsDispatched, FillsEmitted, OrdersRejected, SignalsEmitted, LoopEventLatency)
}
