package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/laptoptracker/laptop-tracker/internal/metrics"
)

// MetricsHandler exposes in-memory metrics when Prometheus is disabled.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "laptop_tracker_vendor_fetches_total{status=\"success\"} %d\n", snap.VendorFetchSuccess)
	writeMetric(w, "laptop_tracker_vendor_fetches_total{status=\"error\"} %d\n", snap.VendorFetchError)
	writeMetric(w, "laptop_tracker_vendor_fetch_duration_seconds_count %d\n", snap.VendorFetchDurationCount)
	writeMetric(w, "laptop_tracker_vendor_fetch_duration_seconds_sum %.6f\n", float64(snap.VendorFetchDurationTotalNs)/1e9)

	writeMetric(w, "laptop_tracker_notifications_total{outcome=\"sent\"} %d\n", snap.NotificationsSent)
	writeMetric(w, "laptop_tracker_notifications_total{outcome=\"failed\"} %d\n", snap.NotificationsFailed)
	writeMetric(w, "laptop_tracker_notifications_total{outcome=\"bad_date\"} %d\n", snap.NotificationsBadDate)
	writeMetric(w, "laptop_tracker_notified_serials %d\n", snap.NotifiedSerials)

	writeMetric(w, "laptop_tracker_store_errors_total{op=\"load\"} %d\n", snap.StoreLoadErrors)
	writeMetric(w, "laptop_tracker_store_errors_total{op=\"save\"} %d\n", snap.StoreSaveErrors)

	keys := make([]string, 0, len(snap.FleetSize))
	for k := range snap.FleetSize {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "laptop_tracker_devices{fleet=%q} %d\n", k, snap.FleetSize[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
