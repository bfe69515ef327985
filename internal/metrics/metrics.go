package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "distribucion"

type Metrics struct {
	CatalogHits   *prometheus.CounterVec
	CatalogMisses *prometheus.CounterVec
	Conversions   *prometheus.CounterVec
	StockRejects  prometheus.Counter
	Requests      *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
}

// New registers every collector on reg. Tests pass prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CatalogHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_hits_total",
			Help:      "Catalog lookups served from the per-warehouse cache.",
		}, []string{"warehouse"}),
		CatalogMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_misses_total",
			Help:      "Catalog lookups that triggered a fetch.",
		}, []string{"warehouse"}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pedidos",
			Name:      "conversions_total",
			Help:      "Pedido to venta conversions by result.",
		}, []string{"result"}),
		StockRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "rejections_total",
			Help:      "Line operations blocked by insufficient stock.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
	}
	reg.MustRegister(m.CatalogHits, m.CatalogMisses, m.Conversions, m.StockRejects, m.Requests, m.LatencyMS)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
