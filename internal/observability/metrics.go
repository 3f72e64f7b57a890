package observability

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	salesAmount     prometheus.Counter
	unitsSold       prometheus.Counter
	stockSkipped    *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics menginisialisasi registry, metrik HTTP, metrik penjualan dan metrik job.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_checkouts_total",
		Help: "Jumlah percobaan checkout berdasarkan hasil.",
	}, []string{"outcome"})
	sales := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_amount_total",
		Help: "Total nilai penjualan (termasuk pajak).",
	})
	units := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_units_sold_total",
		Help: "Jumlah unit yang terjual.",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_stock_lines_skipped_total",
		Help: "Baris keranjang yang tidak mengurangi stok, berdasarkan alasan.",
	}, []string{"reason"})
	registry.MustRegister(requests, duration, checkouts, sales, units, skipped)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		checkouts:       checkouts,
		salesAmount:     sales,
		unitsSold:       units,
		stockSkipped:    skipped,
		jobs:            jobmetrics.NewMetrics(registry),
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

// CheckoutOutcome menghitung hasil checkout (completed, insufficient_payment, ...).
func (m *Metrics) CheckoutOutcome(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

// SaleCompleted mencatat nilai dan unit dari penjualan yang berhasil.
func (m *Metrics) SaleCompleted(total float64, units int) {
	if m == nil {
		return
	}
	m.salesAmount.Add(total)
	m.unitsSold.Add(float64(units))
}

// StockSkipped menghitung baris yang dilewati saat pengurangan stok.
func (m *Metrics) StockSkipped(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.stockSkipped.WithLabelValues(reason).Add(float64(count))
}

// Jobs mengembalikan metrik job yang terdaftar pada registry yang sama.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush meneruskan flush agar streaming tetap berjalan.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack meneruskan hijack untuk koneksi WebSocket.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("observability: hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
