package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_query_executions_total",
			Help: "Total number of execute_sql_query calls by outcome.",
		},
		[]string{"outcome"},
	)
	queryExecutionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlagent_query_execution_latency_ms",
			Help:    "End-to-end execute_sql_query latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlagent_query_rows_returned",
			Help:    "Number of rows returned by successful queries.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)
	planSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_plan_source_total",
			Help: "Total number of query plans by the component that produced them.",
		},
		[]string{"source"},
	)
	schemaCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_schema_cache_lookups_total",
			Help: "Schema cache lookups by result.",
		},
		[]string{"result"},
	)
	archiveUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_archive_uploads_total",
			Help: "Result archive uploads by outcome.",
		},
		[]string{"outcome"},
	)
	webhookMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_webhook_messages_total",
			Help: "Inbound webhook messages by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		queryExecutionsTotal,
		queryExecutionLatencyMs,
		queryRowsReturned,
		planSourceTotal,
		schemaCacheLookupsTotal,
		archiveUploadsTotal,
		webhookMessagesTotal,
	)
}

// ObserveQueryExecution records one execute_sql_query call. Outcome is one of
// success, refused, error or connection_error.
func ObserveQueryExecution(outcome string, rows int, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(outcome).Inc()
	queryExecutionLatencyMs.Observe(float64(elapsed.Milliseconds()))
	if outcome == "success" {
		queryRowsReturned.Observe(float64(rows))
	}
}

func IncrementPlanSource(source string) {
	planSourceTotal.WithLabelValues(source).Inc()
}

func ObserveSchemaCacheLookup(hit bool) {
	if hit {
		schemaCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	schemaCacheLookupsTotal.WithLabelValues("miss").Inc()
}

func IncrementArchiveUpload(err error) {
	if err != nil {
		archiveUploadsTotal.WithLabelValues("error").Inc()
		return
	}
	archiveUploadsTotal.WithLabelValues("ok").Inc()
}

func IncrementWebhookMessage(outcome string) {
	webhookMessagesTotal.WithLabelValues(outcome).Inc()
}
