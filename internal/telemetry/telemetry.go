// Package telemetry registers the engine's prometheus metrics, kept as
// package-level vars and a single init-time MustRegister the way the
// pack's evdnx-gots/metrics package does it.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_entries_total",
			Help: "Total number of entry decisions, by symbol and decision (ENTERED/BLOCKED).",
		},
		[]string{"symbol", "decision"},
	)

	BlockedReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_blocked_reasons_total",
			Help: "Total number of blocked entry attempts, by reason code or filter name.",
		},
		[]string{"reason"},
	)

	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_positions_open",
			Help: "Current number of open positions.",
		},
	)

	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_exits_total",
			Help: "Total number of position exits, by reason.",
		},
		[]string{"reason"},
	)

	DailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_daily_pnl",
			Help: "Running realised P&L for the current trading day.",
		},
	)

	EventLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_event_processing_seconds",
			Help:    "Wall-clock time to process one tick or historical bar end to end.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(EntriesTotal, BlockedReasons, PositionsOpen, ExitsTotal, DailyPnL, EventLatency)
}
