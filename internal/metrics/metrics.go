package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Entry mutations by action (upsert|delete|import) and state (success|error).
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_mutations_total",
			Help: "Ledger entry mutations by action and outcome",
		},
		[]string{"action", "state"},
	)
	BalanceAdjustments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_balance_adjustments_total",
			Help: "Account balance adjustments written",
		},
	)
	AdjustmentRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_adjustment_retries_total",
			Help: "Account adjustment attempts retried after a version conflict",
		},
	)
	ConsistencyErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_consistency_errors_total",
			Help: "Entry writes whose paired account adjustment failed",
		},
	)
	ImportedEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_imported_entries_total",
			Help: "Entries committed through batch import",
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "code"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// /metrics endpoint handler
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(BalanceAdjustments)
	prometheus.MustRegister(AdjustmentRetries)
	prometheus.MustRegister(ConsistencyErrors)
	prometheus.MustRegister(ImportedEntries)
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(WorkerQueueDepth)
}
