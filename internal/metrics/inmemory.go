package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	VendorFetchSuccess         uint64
	VendorFetchError           uint64
	VendorFetchDurationCount   uint64
	VendorFetchDurationTotalNs int64
	NotificationsSent          uint64
	NotificationsFailed        uint64
	NotificationsBadDate       uint64
	NotifiedSerials            int64
	StoreLoadErrors            uint64
	StoreSaveErrors            uint64
	DashboardPollSuccess       uint64
	DashboardPollError         uint64
	// FleetSize is keyed by "vendor/category".
	FleetSize map[string]int
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	vendorFetchSuccess         uint64
	vendorFetchError           uint64
	vendorFetchDurationCount   uint64
	vendorFetchDurationTotalNs int64
	notificationsSent          uint64
	notificationsFailed        uint64
	notificationsBadDate       uint64
	notifiedSerials            int64
	storeLoadErrors            uint64
	storeSaveErrors            uint64
	dashboardPollSuccess       uint64
	dashboardPollError         uint64

	mu        sync.Mutex
	fleetSize map[string]int
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{fleetSize: make(map[string]int)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	fleet := make(map[string]int, len(m.fleetSize))
	for k, v := range m.fleetSize {
		fleet[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		VendorFetchSuccess:         atomic.LoadUint64(&m.vendorFetchSuccess),
		VendorFetchError:           atomic.LoadUint64(&m.vendorFetchError),
		VendorFetchDurationCount:   atomic.LoadUint64(&m.vendorFetchDurationCount),
		VendorFetchDurationTotalNs: atomic.LoadInt64(&m.vendorFetchDurationTotalNs),
		NotificationsSent:          atomic.LoadUint64(&m.notificationsSent),
		NotificationsFailed:        atomic.LoadUint64(&m.notificationsFailed),
		NotificationsBadDate:       atomic.LoadUint64(&m.notificationsBadDate),
		NotifiedSerials:            atomic.LoadInt64(&m.notifiedSerials),
		StoreLoadErrors:            atomic.LoadUint64(&m.storeLoadErrors),
		StoreSaveErrors:            atomic.LoadUint64(&m.storeSaveErrors),
		DashboardPollSuccess:       atomic.LoadUint64(&m.dashboardPollSuccess),
		DashboardPollError:         atomic.LoadUint64(&m.dashboardPollError),
		FleetSize:                  fleet,
	}
}

// IncVendorFetch increments the fetch counter for the status.
func (m *InMemoryRecorder) IncVendorFetch(vendor, status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.vendorFetchSuccess, 1)
		return
	}
	atomic.AddUint64(&m.vendorFetchError, 1)
}

// ObserveVendorFetchDuration records fetch duration.
func (m *InMemoryRecorder) ObserveVendorFetchDuration(vendor string, duration time.Duration) {
	atomic.AddUint64(&m.vendorFetchDurationCount, 1)
	atomic.AddInt64(&m.vendorFetchDurationTotalNs, duration.Nanoseconds())
}

// SetFleetSize stores the device count for a vendor and category.
func (m *InMemoryRecorder) SetFleetSize(vendor, category string, count int) {
	m.mu.Lock()
	m.fleetSize[vendor+"/"+category] = count
	m.mu.Unlock()
}

// IncNotification increments the counter for a notification outcome.
func (m *InMemoryRecorder) IncNotification(outcome string) {
	switch outcome {
	case NotificationSent:
		atomic.AddUint64(&m.notificationsSent, 1)
	case NotificationFailed:
		atomic.AddUint64(&m.notificationsFailed, 1)
	case NotificationBadDate:
		atomic.AddUint64(&m.notificationsBadDate, 1)
	}
}

// SetNotifiedSerials stores the size of the notified set.
func (m *InMemoryRecorder) SetNotifiedSerials(count int) {
	atomic.StoreInt64(&m.notifiedSerials, int64(count))
}

// IncStoreError increments the store error counter for an operation.
func (m *InMemoryRecorder) IncStoreError(op string) {
	if op == StoreLoad {
		atomic.AddUint64(&m.storeLoadErrors, 1)
		return
	}
	atomic.AddUint64(&m.storeSaveErrors, 1)
}

// IncDashboardPoll increments the poll counter for the status.
func (m *InMemoryRecorder) IncDashboardPoll(feed, status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.dashboardPollSuccess, 1)
		return
	}
	atomic.AddUint64(&m.dashboardPollError, 1)
}
