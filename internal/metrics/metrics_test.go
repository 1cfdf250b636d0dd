package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

var (
	_ Recorder = (*NoopRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*Prometheus)(nil)
)

func TestInMemoryRecorder(t *testing.T) {
	m := NewInMemory()
	m.IncVendorFetch("kandji", StatusSuccess)
	m.IncVendorFetch("intune", StatusError)
	m.ObserveVendorFetchDuration("kandji", 2*time.Millisecond)
	m.IncNotification(NotificationSent)
	m.IncNotification(NotificationSent)
	m.IncNotification(NotificationFailed)
	m.IncNotification(NotificationBadDate)
	m.SetNotifiedSerials(7)
	m.IncStoreError(StoreSave)
	m.SetFleetSize("kandji", "danger", 3)
	m.IncDashboardPoll("mac", StatusSuccess)

	s := m.Snapshot()
	if s.VendorFetchSuccess != 1 || s.VendorFetchError != 1 {
		t.Errorf("vendor fetch counters = %d/%d", s.VendorFetchSuccess, s.VendorFetchError)
	}
	if s.VendorFetchDurationCount != 1 || s.VendorFetchDurationTotalNs != int64(2*time.Millisecond) {
		t.Errorf("duration = %d/%d", s.VendorFetchDurationCount, s.VendorFetchDurationTotalNs)
	}
	if s.NotificationsSent != 2 || s.NotificationsFailed != 1 || s.NotificationsBadDate != 1 {
		t.Errorf("notifications = %+v", s)
	}
	if s.NotifiedSerials != 7 {
		t.Errorf("NotifiedSerials = %d", s.NotifiedSerials)
	}
	if s.StoreSaveErrors != 1 || s.StoreLoadErrors != 0 {
		t.Errorf("store errors = %d/%d", s.StoreLoadErrors, s.StoreSaveErrors)
	}
	if s.FleetSize["kandji/danger"] != 3 {
		t.Errorf("FleetSize = %v", s.FleetSize)
	}
	if s.DashboardPollSuccess != 1 {
		t.Errorf("DashboardPollSuccess = %d", s.DashboardPollSuccess)
	}
}

func TestPrometheus_Endpoint(t *testing.T) {
	p := NewPrometheus()

	router := chi.NewRouter()
	router.Use(p.Middleware())
	router.Get("/api/devices", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	router.Get("/metrics", p.Handler().ServeHTTP)

	p.IncVendorFetch("kandji", StatusSuccess)
	p.IncNotification(NotificationSent)
	p.SetNotifiedSerials(4)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/devices", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"laptop_tracker_http_requests_total",
		`path="/api/devices"`,
		`laptop_tracker_vendor_fetches_total{status="success",vendor="kandji"} 1`,
		`laptop_tracker_notifications_total{outcome="sent"} 1`,
		"laptop_tracker_notified_serials 4",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
