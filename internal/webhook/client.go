// Package webhook delivers signed JSON payloads to chat webhooks.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second
)

// NewHTTPClient creates an HTTP client configured for webhook delivery.
// It does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// HTTPHeaders contains the outbound webhook headers.
type HTTPHeaders struct {
	Signature  string
	Timestamp  string
	DeliveryID string
}

// Header names for webhook requests.
const (
	HeaderSignature  = "X-LaptopTracker-Signature"
	HeaderTimestamp  = "X-LaptopTracker-Timestamp"
	HeaderDeliveryID = "X-LaptopTracker-Delivery-Id"
)

// SetWebhookHeaders applies webhook headers to an HTTP request.
// Signature headers are only set when a signature is present.
func SetWebhookHeaders(req *http.Request, headers HTTPHeaders) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderDeliveryID, headers.DeliveryID)
	if headers.Signature != "" {
		req.Header.Set(HeaderSignature, headers.Signature)
		req.Header.Set(HeaderTimestamp, headers.Timestamp)
	}
	req.Header.Set("User-Agent", "LaptopTracker-Webhook/1.0")
}

// DeliveryError is returned when the receiver answers with a non-2xx status.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook receiver returned status %d: %s", e.StatusCode, e.Body)
}

// Sender posts JSON payloads to a webhook URL.
type Sender struct {
	client *http.Client
	secret string
	now    func() time.Time
}

// NewSender creates a Sender. An empty secret disables signing.
func NewSender(client *http.Client, secret string) *Sender {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Sender{client: client, secret: secret, now: time.Now}
}

// Send posts payload to targetURL and returns the delivery ID it used.
func (s *Sender) Send(ctx context.Context, targetURL string, payload []byte) (string, error) {
	now := s.now()
	deliveryID := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

	headers := HTTPHeaders{DeliveryID: deliveryID}
	if s.secret != "" {
		ts := now.Unix()
		headers.Timestamp = strconv.FormatInt(ts, 10)
		headers.Signature = sign(s.secret, ts, payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(payload))
	if err != nil {
		return deliveryID, fmt.Errorf("build webhook request: %w", err)
	}
	SetWebhookHeaders(req, headers)

	resp, err := s.client.Do(req)
	if err != nil {
		return deliveryID, fmt.Errorf("post webhook to %s: %w", ExtractHost(targetURL), err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return deliveryID, &DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return deliveryID, nil
}
