package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laptoptracker/laptop-tracker/internal/metrics"
	"github.com/laptoptracker/laptop-tracker/internal/model"
	"github.com/laptoptracker/laptop-tracker/internal/normalize"
	"github.com/laptoptracker/laptop-tracker/internal/notify"
	"github.com/laptoptracker/laptop-tracker/internal/store"
)

type fakeSource struct {
	name    string
	records []map[string]any
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchDevices(context.Context) ([]map[string]any, error) {
	f.calls++
	return f.records, f.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []model.Device
}

func (r *recordingNotifier) Notify(_ context.Context, d model.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, d)
	return nil
}

func yearsAgo(n int) string {
	return time.Now().AddDate(-n, 0, 0).UTC().Format(time.RFC3339)
}

func TestInventoryService_MacDevices_NotifiesOnce(t *testing.T) {
	kandji := &fakeSource{name: normalize.VendorKandji, records: []map[string]any{
		{"device_name": "Old Mac", "serial_number": "OLD123", "first_enrollment": yearsAgo(5), "user": map[string]any{"name": "Ada"}},
		{"device_name": "New Mac", "serial_number": "NEW1", "first_enrollment": yearsAgo(1)},
	}}
	n := &recordingNotifier{}
	st := store.NewMemoryStore()
	rec := metrics.NewInMemory()

	svc := NewInventoryService(Options{
		Kandji:  kandji,
		Gate:    notify.NewGate(n, st, rec, nil),
		Metrics: rec,
	})

	devices, err := svc.MacDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Ada", devices[0].User.Name)
	assert.Equal(t, "Mac", devices[0].Platform)

	_, err = svc.MacDevices(context.Background())
	require.NoError(t, err)

	require.Len(t, n.calls, 1)
	assert.Equal(t, "OLD123", n.calls[0].SerialNumber)

	saved, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD123"}, saved)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(2), snap.VendorFetchSuccess)
	assert.Equal(t, 1, snap.FleetSize["kandji/danger"])
	assert.Equal(t, 1, snap.FleetSize["kandji/good"])
}

func TestInventoryService_MacDevices_SpaceSeparatedEnrollment(t *testing.T) {
	enrolled := time.Now().AddDate(-5, 0, 0).UTC().Format("2006-01-02 15:04:05.000000-07:00")
	kandji := &fakeSource{name: normalize.VendorKandji, records: []map[string]any{
		{"device_name": "Old Mac", "serial_number": "OLD123", "first_enrollment": enrolled},
	}}
	n := &recordingNotifier{}
	st := store.NewMemoryStore()

	svc := NewInventoryService(Options{
		Kandji: kandji,
		Gate:   notify.NewGate(n, st, nil, nil),
	})

	_, err := svc.MacDevices(context.Background())
	require.NoError(t, err)
	_, err = svc.MacDevices(context.Background())
	require.NoError(t, err)

	require.Len(t, n.calls, 1)
	assert.Equal(t, "OLD123", n.calls[0].SerialNumber)

	saved, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD123"}, saved)
}

func TestInventoryService_MacDevices_FetchError(t *testing.T) {
	kandji := &fakeSource{name: normalize.VendorKandji, err: errors.New("boom")}
	svc := NewInventoryService(Options{Kandji: kandji})

	_, err := svc.MacDevices(context.Background())
	var ferr *FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "kandji", ferr.Vendor)
	assert.EqualError(t, errors.Unwrap(err), "boom")
}

func TestInventoryService_WindowsDisabled(t *testing.T) {
	kandji := &fakeSource{name: normalize.VendorKandji}
	svc := NewInventoryService(Options{Kandji: kandji})

	_, err := svc.WindowsDevices(context.Background())
	assert.ErrorIs(t, err, ErrIntuneDisabled)
	assert.False(t, svc.IntuneEnabled())
	assert.Zero(t, kandji.calls)
}

func TestInventoryService_WindowsDevices(t *testing.T) {
	intune := &fakeSource{name: normalize.VendorIntune, records: []map[string]any{
		{"deviceName": "WIN-01", "serialNumber": "W1", "enrolledDateTime": yearsAgo(2)},
	}}
	svc := NewInventoryService(Options{Kandji: &fakeSource{name: normalize.VendorKandji}, Intune: intune})

	devices, err := svc.WindowsDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "WIN-01", devices[0].DeviceName)
	assert.Equal(t, "Windows", devices[0].Platform)
}

func TestInventoryService_AllDevicesDoesNotNotify(t *testing.T) {
	kandji := &fakeSource{name: normalize.VendorKandji, records: []map[string]any{
		{"serial_number": "OLD", "first_enrollment": yearsAgo(6)},
	}}
	intune := &fakeSource{name: normalize.VendorIntune, records: []map[string]any{
		{"serialNumber": "W-OLD", "enrolledDateTime": yearsAgo(6)},
	}}
	n := &recordingNotifier{}
	svc := NewInventoryService(Options{
		Kandji: kandji,
		Intune: intune,
		Gate:   notify.NewGate(n, store.NewMemoryStore(), nil, nil),
	})

	devices, err := svc.AllDevices(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Empty(t, n.calls)
}

func TestInventoryService_UnknownVendor(t *testing.T) {
	svc := NewInventoryService(Options{Kandji: &fakeSource{name: "jamf"}})
	_, err := svc.MacDevices(context.Background())
	assert.ErrorIs(t, err, normalize.ErrUnknownVendor)
}
