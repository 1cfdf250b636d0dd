package model

// Sentinels substituted for fields a vendor record does not carry.
const (
	UnknownDevice = "Unknown Device"
	UnknownUser   = "Unknown User"
	UnknownModel  = "Unknown Model"
	UnknownOS     = "Unknown OS"
	UnknownSerial = "Unknown Serial"
)

// Platform identifies which MDM a device came from.
type Platform string

const (
	PlatformMac     Platform = "Mac"
	PlatformWindows Platform = "Windows"
)

// User is the person a device is assigned to.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Device is the canonical inventory record produced by normalization.
// It is immutable for the lifetime of a poll.
type Device struct {
	DeviceName      string `json:"device_name"`
	User            User   `json:"user"`
	Model           string `json:"model"`
	OSVersion       string `json:"os_version"`
	SerialNumber    string `json:"serial_number"`
	AssetTag        string `json:"asset_tag"`
	FirstEnrollment string `json:"first_enrollment"`
	LastEnrollment  string `json:"last_enrollment,omitempty"`
	LastCheckIn     string `json:"last_check_in,omitempty"`
	Platform        string `json:"platform,omitempty"`
}

// EnrollmentCandidates returns the timestamps usable as the device's age
// anchor, in priority order.
func (d Device) EnrollmentCandidates() []string {
	return []string{d.FirstEnrollment, d.LastEnrollment, d.LastCheckIn}
}

// HasKnownSerial reports whether the serial can key the notified set.
func (d Device) HasKnownSerial() bool {
	return d.SerialNumber != "" && d.SerialNumber != UnknownSerial
}

// DeviceList is the response envelope of the aggregation endpoints.
type DeviceList struct {
	Devices []Device `json:"devices"`
}
