// Package syncmetrics exposes Prometheus counters and histograms for sync
// outcomes: sync counts by outcome, created/updated/deleted/published record
// counts, conflict and error counts, and sync duration, one series set per
// (bucket, collection).
package syncmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the sync engine's Prometheus series. Register it with a
// prometheus.Registerer once per process; every Collection's Sync calls can
// share one Metrics instance.
type Metrics struct {
	syncTotal     *prometheus.CounterVec
	recordsTotal  *prometheus.CounterVec
	conflictTotal *prometheus.CounterVec
	errorTotal    *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
}

// New constructs an unregistered Metrics. Call Register to attach it to a
// prometheus.Registerer.
func New() *Metrics {
	return &Metrics{
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collectionsync_syncs_total",
			Help: "Total number of completed Sync calls, labeled by outcome.",
		}, []string{"bucket", "collection", "outcome"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collectionsync_records_total",
			Help: "Total number of records reconciled during sync, labeled by action.",
		}, []string{"bucket", "collection", "action"}),
		conflictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collectionsync_conflicts_total",
			Help: "Total number of conflicts encountered during sync.",
		}, []string{"bucket", "collection", "type"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collectionsync_sync_errors_total",
			Help: "Total number of errors encountered during sync.",
		}, []string{"bucket", "collection"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collectionsync_sync_duration_seconds",
			Help:    "Duration of Sync calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"bucket", "collection"}),
	}
}

// Register attaches every series to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.syncTotal, m.recordsTotal, m.conflictTotal, m.errorTotal, m.syncDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSync records one completed Sync call's outcome and duration.
func (m *Metrics) ObserveSync(bucket, collection string, ok bool, created, updated, deleted, published, conflicts, errs int, duration time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.syncTotal.WithLabelValues(bucket, collection, outcome).Inc()
	m.recordsTotal.WithLabelValues(bucket, collection, "created").Add(float64(created))
	m.recordsTotal.WithLabelValues(bucket, collection, "updated").Add(float64(updated))
	m.recordsTotal.WithLabelValues(bucket, collection, "deleted").Add(float64(deleted))
	m.recordsTotal.WithLabelValues(bucket, collection, "published").Add(float64(published))
	if conflicts > 0 {
		m.conflictTotal.WithLabelValues(bucket, collection, "unresolved").Add(float64(conflicts))
	}
	if errs > 0 {
		m.errorTotal.WithLabelValues(bucket, collection).Add(float64(errs))
	}
	m.syncDuration.WithLabelValues(bucket, collection).Observe(duration.Seconds())
}
