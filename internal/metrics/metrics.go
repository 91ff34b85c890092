package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for SearchesTotal
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recolookup_searches_total",
			Help: "Lookups performed per table, by outcome",
		},
		[]string{"table", "outcome"},
	)

	TableRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recolookup_table_rows",
			Help: "Number of records in each loaded table",
		},
		[]string{"table"},
	)

	TableLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recolookup_table_load_duration_seconds",
			Help:    "Time spent fetching and parsing a table",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	TableLoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recolookup_table_load_failures_total",
			Help: "Table loads that ended in an error",
		},
		[]string{"table"},
	)
)

// RecordSearch counts one lookup against table
func RecordSearch(table, outcome string) {
	SearchesTotal.WithLabelValues(table, outcome).Inc()
}

// RecordTableLoad records a finished load; rows is ignored when err is non-nil
func RecordTableLoad(table string, rows int, duration time.Duration, err error) {
	TableLoadDuration.WithLabelValues(table).Observe(duration.Seconds())
	if err != nil {
		TableLoadFailures.WithLabelValues(table).Inc()
		TableRows.WithLabelValues(table).Set(0)
		return
	}
	TableRows.WithLabelValues(table).Set(float64(rows))
}
