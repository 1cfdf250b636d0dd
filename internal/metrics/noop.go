package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncVendorFetch is a no-op.
func (n *NoopRecorder) IncVendorFetch(vendor, status string) {}

// ObserveVendorFetchDuration is a no-op.
func (n *NoopRecorder) ObserveVendorFetchDuration(vendor string, duration time.Duration) {}

// SetFleetSize is a no-op.
func (n *NoopRecorder) SetFleetSize(vendor, category string, count int) {}

// IncNotification is a no-op.
func (n *NoopRecorder) IncNotification(outcome string) {}

// SetNotifiedSerials is a no-op.
func (n *NoopRecorder) SetNotifiedSerials(count int) {}

// IncStoreError is a no-op.
func (n *NoopRecorder) IncStoreError(op string) {}

// IncDashboardPoll is a no-op.
func (n *NoopRecorder) IncDashboardPoll(feed, status string) {}
