package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_turns_total",
			Help: "Total number of processed messages by resulting intent",
		},
		[]string{"intent"},
	)

	TurnsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_turns_failed_total",
			Help: "Total number of turns aborted by an infrastructure failure",
		},
		[]string{"error_kind"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderbot_turn_duration_seconds",
			Help:    "Duration of message processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	CombinerRules = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_combiner_rule_total",
			Help: "Combiner branch that produced the order lines",
		},
		[]string{"rule"},
	)

	FallbackCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_fallback_calls_total",
			Help: "Fallback classifier invocations by outcome",
		},
		[]string{"outcome"},
	)

	FallbackCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_fallback_cost_usd_total",
			Help: "Accumulated fallback model cost in USD",
		},
		[]string{"model"},
	)

	OrdersConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbot_orders_confirmed_total",
			Help: "Total number of confirmed orders",
		},
	)

	ActiveTurns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderbot_active_turns",
			Help: "Number of turns currently being processed",
		},
	)
)
