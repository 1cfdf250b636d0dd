package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laptoptracker/laptop-tracker/internal/model"
)

func newTestServer(t *testing.T, pollers ...*Poller) http.Handler {
	t.Helper()
	s, err := NewServer(pollers, time.Minute, quietLogger())
	require.NoError(t, err)
	s.now = func() time.Time { return viewNow }

	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func loadedPoller(t *testing.T, feed Feed, devices []model.Device) *Poller {
	t.Helper()
	p := NewPoller(feed, &scriptedFetcher{results: []fetchResult{{devices: devices}}}, time.Minute, nil, quietLogger())
	require.NoError(t, p.Refresh(context.Background()))
	return p
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Page(t *testing.T) {
	h := newTestServer(t, loadedPoller(t, FeedMac, sampleDevices()))

	rec := get(t, h, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>macOS Laptops")
	assert.Contains(t, body, `id="totalDevices">4<`)
	assert.Contains(t, body, "REPLACE NOW")
	assert.Contains(t, body, "MBP-Alan")
}

func TestServer_PartialSearchAndFilter(t *testing.T) {
	h := newTestServer(t, loadedPoller(t, FeedMac, sampleDevices()))

	rec := get(t, h, "/partial?feed=mac&q=pro&filter=good")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "MBP-Ada")
	assert.NotContains(t, body, "MBP-Grace")
	assert.Contains(t, body, `<span class="search-highlight">Pro</span>`)
	assert.NotContains(t, body, "<!DOCTYPE html>")
}

func TestServer_PartialEscapesDeviceData(t *testing.T) {
	devices := []model.Device{{DeviceName: `<script>alert(1)</script>`, SerialNumber: "X"}}
	h := newTestServer(t, loadedPoller(t, FeedMac, devices))

	body := get(t, h, "/partial?feed=mac&q=alert").Body.String()

	assert.NotContains(t, body, "<script>alert")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestServer_WindowsDisabled(t *testing.T) {
	h := newTestServer(t, loadedPoller(t, FeedMac, nil))

	body := get(t, h, "/windows").Body.String()

	assert.Contains(t, body, "Intune integration not enabled")
}

func TestServer_FetchErrorShown(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{{err: &FetchError{
		Feed:       FeedWindows.Title,
		StatusCode: http.StatusInternalServerError,
		Message:    "Missing role",
		Hint:       "Grant consent",
	}}}}
	p := NewPoller(FeedWindows, f, time.Minute, nil, quietLogger())
	_ = p.Refresh(context.Background())
	h := newTestServer(t, p)

	body := get(t, h, "/partial?feed=windows").Body.String()

	assert.Contains(t, body, "Windows Laptops HTTP error! status: 500")
	assert.Contains(t, body, "Missing role")
	assert.Contains(t, body, "Grant consent")
}

func TestServer_FailedPollKeepsLastDevices(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{
		{devices: sampleDevices()},
		{err: &FetchError{Feed: FeedMac.Title, StatusCode: http.StatusBadGateway, Message: "Kandji down"}},
	}}
	p := NewPoller(FeedMac, f, time.Minute, nil, quietLogger())
	require.NoError(t, p.Refresh(context.Background()))
	require.Error(t, p.Refresh(context.Background()))
	h := newTestServer(t, p)

	body := get(t, h, "/partial?feed=mac").Body.String()

	assert.Contains(t, body, "Kandji down")
	assert.Contains(t, body, "Showing devices from the last successful update.")
	assert.Contains(t, body, `id="totalDevices">4<`)
	assert.Contains(t, body, "MBP-Alan")
}

func TestServer_NotLoadedYet(t *testing.T) {
	p := NewPoller(FeedMac, &scriptedFetcher{}, time.Minute, nil, quietLogger())
	h := newTestServer(t, p)

	assert.Contains(t, get(t, h, "/partial?feed=mac").Body.String(), "Loading devices")
}

func TestServer_UnknownFeed(t *testing.T) {
	h := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/partial?feed=linux").Code)
}

func TestServer_Refresh(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{{devices: []model.Device{{SerialNumber: "A1"}}}}}
	p := NewPoller(FeedMac, f, time.Minute, nil, quietLogger())
	h := newTestServer(t, p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh?feed=mac", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.calls)
	assert.Len(t, p.State().Devices, 1)
}
