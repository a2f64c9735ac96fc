// Package metrics holds the Prometheus instruments of the dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	// Registry backs the /metrics endpoint.
	Registry *prometheus.Registry

	chartDuration   *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	ledgerOrders    prometheus.Gauge
	ledgerDropped   *prometheus.GaugeVec
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		chartDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lanchonete_chart_compute_seconds",
				Help:    "Time spent recomputing a chart from the ledger.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"chart", "granularity"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanchonete_chart_cache_hits_total",
				Help: "Chart requests served from the memo cache.",
			},
			[]string{"chart"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanchonete_chart_cache_misses_total",
				Help: "Chart requests that required a recompute.",
			},
			[]string{"chart"},
		),
		ledgerOrders: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lanchonete_ledger_orders",
				Help: "Orders in the loaded ledger.",
			},
		),
		ledgerDropped: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lanchonete_ledger_dropped_rows",
				Help: "Raw rows discarded while cleaning the ledger.",
			},
			[]string{"reason"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lanchonete_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanchonete_http_requests_total",
				Help: "HTTP requests by route and status class.",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveChart records the duration of one chart recompute.
func (m *Metrics) ObserveChart(chart, granularity string, d time.Duration) {
	m.chartDuration.WithLabelValues(chart, granularity).Observe(d.Seconds())
}

func (m *Metrics) IncrCacheHit(chart string)  { m.cacheHits.WithLabelValues(chart).Inc() }
func (m *Metrics) IncrCacheMiss(chart string) { m.cacheMisses.WithLabelValues(chart).Inc() }

// SetLedger publishes the size of the loaded ledger and the rows dropped
// while cleaning it.
func (m *Metrics) SetLedger(orders, droppedDates, droppedValues int) {
	m.ledgerOrders.Set(float64(orders))
	m.ledgerDropped.WithLabelValues("date").Set(float64(droppedDates))
	m.ledgerDropped.WithLabelValues("value").Set(float64(droppedValues))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
}

// CacheHits returns the cumulative hit count for chart.
func (m *Metrics) CacheHits(chart string) float64 { return counterValue(m.cacheHits, chart) }

// CacheMisses returns the cumulative miss count for chart.
func (m *Metrics) CacheMisses(chart string) float64 { return counterValue(m.cacheMisses, chart) }

// counterValue extracts the current value from a CounterVec for the given labels.
func counterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	pb := &dto.Metric{}
	if err := counter.Write(pb); err != nil {
		return 0
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return 0
}
