// Package metrics provides Prometheus metrics for health reporting.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Report metrics
	reportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gvfs_health_reports_total",
			Help: "Total number of health reports by resulting status",
		},
		[]string{"status"},
	)

	reportErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gvfs_health_report_errors_total",
			Help: "Total number of failed health reports by error kind",
		},
		[]string{"kind"},
	)

	reportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gvfs_health_report_duration_seconds",
			Help:    "Time to compute a health report",
			Buckets: prometheus.DefBuckets,
		},
	)

	hydrationPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gvfs_hydration_percent",
			Help: "Total hydration percentage of the last report for a scope",
		},
		[]string{"scope"},
	)

	// Ledger metrics
	ledgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gvfs_ledger_entries_scanned_total",
			Help: "Ledger entries visited during aggregation",
		},
		[]string{"classification"},
	)

	ledgerEntriesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gvfs_ledger_entries_skipped_total",
			Help: "Ledger entries ignored during aggregation",
		},
		[]string{"reason"},
	)

	// Baseline metrics
	treeObjectsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gvfs_baseline_tree_reads_total",
			Help: "Tree objects or manifest shards read from the baseline source",
		},
		[]string{"source"},
	)

	treeCountCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gvfs_baseline_count_cache_hits_total",
			Help: "Subtree file counts served from the LRU memo",
		},
	)

	// Object store metrics
	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gvfs_store_operation_duration_seconds",
			Help:    "Object store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gvfs_store_operations_total",
			Help: "Total object store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gvfs_db_query_duration_seconds",
			Help:    "Ledger database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// RecordReport records a completed report.
func RecordReport(scope, status string, percent int, duration time.Duration) {
	reportsTotal.WithLabelValues(status).Inc()
	reportDuration.Observe(duration.Seconds())
	if scope == "" {
		scope = "/"
	}
	hydrationPercent.WithLabelValues(scope).Set(float64(percent))
}

// RecordReportError records a failed report.
func RecordReportError(kind string) {
	reportErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordLedgerEntries records n ledger entries visited by the aggregator.
func RecordLedgerEntries(classification string, n int) {
	ledgerEntriesTotal.WithLabelValues(classification).Add(float64(n))
}

// RecordLedgerSkips records n ledger entries the aggregator ignored.
func RecordLedgerSkips(reason string, n int) {
	ledgerEntriesSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordTreeRead records a tree object or shard read.
func RecordTreeRead(source string) {
	treeObjectsRead.WithLabelValues(source).Inc()
}

// RecordCountCacheHit records a memoized subtree count.
func RecordCountCacheHit() {
	treeCountCacheHits.Inc()
}

// RecordStoreOperation records an object store operation.
func RecordStoreOperation(backend, operation string, duration time.Duration, success bool) {
	storeOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storeOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// RecordDBQuery records a ledger database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// WriteTextfile writes all registered metrics in the node exporter textfile
// format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
