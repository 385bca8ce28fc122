// Package metrics exposes Prometheus instruments for catalog queries,
// order placement and ledger writes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ─── Catalog ────────────────────────────────────────────────────────────────

var CatalogFilters = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "grocer",
	Name:      "catalog_filters_total",
	Help:      "Product listings served.",
})

var CatalogFilterResults = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "grocer",
	Name:      "catalog_filter_results",
	Help:      "Number of products returned per listing.",
	Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
})

// ─── Orders ─────────────────────────────────────────────────────────────────

var OrdersCommitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "grocer",
	Name:      "orders_committed_total",
	Help:      "Orders durably appended to the ledger.",
})

var OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "grocer",
	Name:      "orders_rejected_total",
	Help:      "Orders rejected before or during persistence, by error kind.",
}, []string{"kind"})

var OrderValue = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "grocer",
	Name:      "order_total",
	Help:      "Order totals in the smallest currency unit.",
	Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
})

// ─── Ledger ─────────────────────────────────────────────────────────────────

var LedgerAppendSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "grocer",
	Name:      "ledger_append_seconds",
	Help:      "Latency of the ledger read-modify-write cycle.",
	Buckets:   prometheus.DefBuckets,
}, []string{"backend"})

// ─── Sessions ───────────────────────────────────────────────────────────────

var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "grocer",
	Name:      "sessions_active",
	Help:      "Live conversational sessions.",
})

// ObserveAppend records the duration of a ledger append started at start.
func ObserveAppend(backend string, start time.Time) {
	LedgerAppendSeconds.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
