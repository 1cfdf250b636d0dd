// Package mdm defines the contract shared by the device-management vendor clients.
package mdm

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Source fetches raw device records from one MDM vendor.
type Source interface {
	// Name is the vendor key used by the field mapping and metrics.
	Name() string
	// FetchDevices returns every device record the vendor reports.
	FetchDevices(ctx context.Context) ([]map[string]any, error)
}

const (
	// ClientTimeout is the total request timeout for vendor calls.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
)

// NewHTTPClient creates an HTTP client for vendor API calls.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: TLSHandshakeTimeout,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
