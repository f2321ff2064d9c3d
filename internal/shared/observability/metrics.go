package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	DecodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sapling_decode_seconds",
		Help:    "Time spent decoding a grammar file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sapling_graph_nodes_total",
		Help: "Number of rules in the most recently built rule graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sapling_graph_edges_total",
		Help: "Number of symbol references in the most recently built rule graph.",
	})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sapling_validation_pass_seconds",
		Help:    "Time spent in a single validation pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sapling_validations_total",
		Help: "Validation runs by outcome (ok, invalid, decode_error).",
	}, []string{"outcome"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sapling_diagnostics_total",
		Help: "Diagnostics emitted, by code.",
	}, []string{"code"})

	ReportCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sapling_report_cache_hits_total",
		Help: "Validations answered from the content-hash report cache.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sapling_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sapling_history_write_errors_total",
		Help: "Validation runs that could not be recorded in the history store.",
	})
)
