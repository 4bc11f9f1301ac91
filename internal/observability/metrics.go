// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Trade metrics
	TradesExecuted *prometheus.CounterVec
	TradeFailures  *prometheus.CounterVec
	RefundsIssued  prometheus.Counter
	RefundLamports prometheus.Counter
	TradeLatency   *prometheus.HistogramVec

	// Lifecycle metrics
	ProtocolInits     prometheus.Counter
	CoinsLaunched     prometheus.Counter
	CurvesDeactivated prometheus.Counter
	WithdrawalsTotal  prometheus.Counter
	WithdrawnLamports prometheus.Counter

	// Curve state metrics
	EscrowBalance *prometheus.GaugeVec
	TokensSold    *prometheus.GaugeVec

	// Feed metrics
	FeedSubscribers prometheus.Gauge
	FeedPublished   prometheus.Counter
	FeedDropped     prometheus.Counter

	// Storage metrics
	StoreLatency *prometheus.HistogramVec
	StoreErrors  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "curve_engine"
	}

	return &Metrics{
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "executed_total",
			Help:      "Total number of executed trades by direction",
		}, []string{"direction"}),
		TradeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "failures_total",
			Help:      "Total number of rejected trades by reason",
		}, []string{"reason"}),
		RefundsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "refunds_total",
			Help:      "Total number of supply-cap clamped buys that refunded lamports",
		}),
		RefundLamports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "refund_lamports_total",
			Help:      "Total lamports refunded on supply-cap clamped buys",
		}),
		TradeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "latency_seconds",
			Help:      "Trade execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),

		ProtocolInits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "protocol_inits_total",
			Help:      "Total number of successful protocol initializations",
		}),
		CoinsLaunched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "coins_launched_total",
			Help:      "Total number of coins launched",
		}),
		CurvesDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "curves_deactivated_total",
			Help:      "Total number of curves deactivated at the supply cap",
		}),
		WithdrawalsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "withdrawals_total",
			Help:      "Total number of creator withdrawals",
		}),
		WithdrawnLamports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "withdrawn_lamports_total",
			Help:      "Total lamports withdrawn by creators",
		}),

		EscrowBalance: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "escrow_balance_lamports",
			Help:      "Current escrow vault balance per mint",
		}, []string{"mint"}),
		TokensSold: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "tokens_sold",
			Help:      "Cumulative tokens sold per mint",
		}, []string{"mint"}),

		FeedSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Current number of websocket feed subscribers",
		}),
		FeedPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "published_total",
			Help:      "Total number of trade events published to the feed",
		}),
		FeedDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "dropped_total",
			Help:      "Total number of feed messages dropped on slow subscribers",
		}),

		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Storage query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_errors_total",
			Help:      "Total number of storage query errors",
		}, []string{"store", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
