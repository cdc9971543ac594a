package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	catalog         *CatalogMetrics
}

// NewMetrics menginisialisasi registry, metrik HTTP dan metrik katalog.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(requests, duration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		catalog:         NewCatalogMetrics(registry),
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Catalog mengembalikan metrik mesin pencarian katalog.
func (m *Metrics) Catalog() *CatalogMetrics {
	if m == nil {
		return nil
	}
	return m.catalog
}

// CatalogMetrics mencatat pencarian dan pembangunan indeks penjualan.
type CatalogMetrics struct {
	searchDuration prometheus.Histogram
	searchResults  prometheus.Histogram
	indexBuilds    prometheus.Counter
	indexRecords   prometheus.Gauge
}

// NewCatalogMetrics mendaftarkan metrik katalog pada registerer.
func NewCatalogMetrics(registerer prometheus.Registerer) *CatalogMetrics {
	m := &CatalogMetrics{
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "odyssey_catalog_search_duration_seconds",
			Help:    "Durasi satu pencarian katalog termasuk join dan agregasi.",
			Buckets: prometheus.DefBuckets,
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "odyssey_catalog_search_results",
			Help:    "Jumlah produk yang lolos filter per pencarian.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		indexBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_catalog_sales_index_builds_total",
			Help: "Jumlah pembangunan ulang indeks penjualan per produk.",
		}),
		indexRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "odyssey_catalog_sales_index_records",
			Help: "Jumlah catatan penjualan pada indeks aktif.",
		}),
	}
	registerer.MustRegister(m.searchDuration, m.searchResults, m.indexBuilds, m.indexRecords)
	return m
}

// ObserveSearch mencatat durasi dan jumlah hasil pencarian.
func (m *CatalogMetrics) ObserveSearch(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
	m.searchResults.Observe(float64(results))
}

// IndexBuilt mencatat pembangunan indeks baru.
func (m *CatalogMetrics) IndexBuilt(records int) {
	if m == nil {
		return
	}
	m.indexBuilds.Inc()
	m.indexRecords.Set(float64(records))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
