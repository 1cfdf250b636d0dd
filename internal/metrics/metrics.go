// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Notification outcomes.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationBadDate = "bad_date"
)

// Store operations.
const (
	StoreLoad = "load"
	StoreSave = "save"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Vendor fetch metrics
	IncVendorFetch(vendor, status string)
	ObserveVendorFetchDuration(vendor string, duration time.Duration)
	SetFleetSize(vendor, category string, count int)

	// Notification gate metrics
	IncNotification(outcome string)
	SetNotifiedSerials(count int)
	IncStoreError(op string)

	// Dashboard poller metrics
	IncDashboardPoll(feed, status string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
