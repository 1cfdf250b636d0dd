package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "laptop_tracker"

// Prometheus implements Recorder on a private Prometheus registry and
// also instruments HTTP requests.
type Prometheus struct {
	registry *prometheus.Registry

	reqTotal   *prometheus.CounterVec
	reqLatency *prometheus.HistogramVec

	vendorFetches   *prometheus.CounterVec
	vendorLatency   *prometheus.HistogramVec
	fleetSize       *prometheus.GaugeVec
	notifications   *prometheus.CounterVec
	notifiedSerials prometheus.Gauge
	storeErrors     *prometheus.CounterVec
	dashboardPolls  *prometheus.CounterVec
}

// NewPrometheus creates a Recorder backed by a private registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		reqLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		vendorFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_fetches_total",
			Help:      "MDM vendor device list fetches",
		}, []string{"vendor", "status"}),
		vendorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_fetch_duration_seconds",
			Help:      "MDM vendor device list fetch latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"vendor"}),
		fleetSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Devices in the last fetch by age category",
		}, []string{"vendor", "category"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Replacement notification attempts by outcome",
		}, []string{"outcome"}),
		notifiedSerials: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notified_serials",
			Help:      "Serial numbers in the notified set",
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Notified set store failures",
		}, []string{"op"}),
		dashboardPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_polls_total",
			Help:      "Dashboard aggregator polls",
		}, []string{"feed", "status"}),
	}

	p.registry.MustRegister(
		p.reqTotal, p.reqLatency,
		p.vendorFetches, p.vendorLatency, p.fleetSize,
		p.notifications, p.notifiedSerials, p.storeErrors,
		p.dashboardPolls,
	)
	return p
}

// IncVendorFetch counts a vendor fetch.
func (p *Prometheus) IncVendorFetch(vendor, status string) {
	p.vendorFetches.WithLabelValues(vendor, status).Inc()
}

// ObserveVendorFetchDuration records vendor fetch latency.
func (p *Prometheus) ObserveVendorFetchDuration(vendor string, duration time.Duration) {
	p.vendorLatency.WithLabelValues(vendor).Observe(duration.Seconds())
}

// SetFleetSize sets the device gauge for a vendor and category.
func (p *Prometheus) SetFleetSize(vendor, category string, count int) {
	p.fleetSize.WithLabelValues(vendor, category).Set(float64(count))
}

// IncNotification counts a notification outcome.
func (p *Prometheus) IncNotification(outcome string) {
	p.notifications.WithLabelValues(outcome).Inc()
}

// SetNotifiedSerials sets the notified set gauge.
func (p *Prometheus) SetNotifiedSerials(count int) {
	p.notifiedSerials.Set(float64(count))
}

// IncStoreError counts a store failure.
func (p *Prometheus) IncStoreError(op string) {
	p.storeErrors.WithLabelValues(op).Inc()
}

// IncDashboardPoll counts a dashboard poll.
func (p *Prometheus) IncDashboardPoll(feed, status string) {
	p.dashboardPolls.WithLabelValues(feed, status).Inc()
}

// Middleware returns a chi middleware that records request count and latency
// labelled by route pattern.
func (p *Prometheus) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.RoutePatterns) > 0 {
				path = rctx.RoutePatterns[len(rctx.RoutePatterns)-1]
			} else {
				path = "unmatched"
			}

			status := strconv.Itoa(rw.code)
			p.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			p.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}
