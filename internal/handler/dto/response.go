// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "encoding/json"

// Error messages returned by the aggregation endpoints.
const (
	ErrKandjiFetch      = "Failed to fetch devices from Kandji API"
	ErrIntuneFetch      = "Failed to fetch devices from Intune"
	ErrIntuneDisabled   = "Intune integration not enabled"
	ErrReportBuild      = "Failed to build device report"
	ErrNotFound         = "resource not found"
	ErrMethodNotAllowed = "method not allowed"
)

// ErrorResponse is the body of every failed request. Code, Raw and Hint are
// only set on the Intune path.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	Hint    string          `json:"hint,omitempty"`
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	KandjiURL string `json:"kandjiUrl"`
}

// ReadinessResponse is the readiness body.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
