// Package dashboard polls the aggregator and renders the device list.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/handler/dto"
	"github.com/laptoptracker/laptop-tracker/internal/model"
	"github.com/laptoptracker/laptop-tracker/internal/normalize"
)

const maxBodyBytes = 32 << 20

// Feed is one aggregator endpoint shown as a dashboard page.
type Feed struct {
	Key   string
	Title string
	Path  string
	Route string
}

var (
	FeedMac = Feed{
		Key:   "mac",
		Title: "macOS Laptops",
		Path:  "/api/devices",
		Route: "/",
	}
	FeedWindows = Feed{
		Key:   "windows",
		Title: "Windows Laptops",
		Path:  "/api/windows-devices",
		Route: "/windows",
	}
)

// FetchError is a non-2xx answer from the aggregator. Message and Hint come
// from the error body when it could be decoded.
type FetchError struct {
	Feed       string
	StatusCode int
	Message    string
	Hint       string
	Raw        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s HTTP error! status: %d", e.Feed, e.StatusCode)
}

// Client reads device lists from the aggregator.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client. A nil httpClient gets a 60s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Fetch returns the devices of one feed. Elements that do not decode as a
// device are dropped.
func (c *Client) Fetch(ctx context.Context, feed Feed) ([]model.Device, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+feed.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed.Key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", feed.Key, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newFetchError(feed, resp.StatusCode, body)
	}

	items, err := normalize.UnwrapList(body, normalize.ClientListKeys...)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", feed.Key, err)
	}

	devices := make([]model.Device, 0, len(items))
	for _, item := range items {
		var d model.Device
		if err := json.Unmarshal(item, &d); err != nil {
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func newFetchError(feed Feed, status int, body []byte) *FetchError {
	ferr := &FetchError{Feed: feed.Title, StatusCode: status, Raw: string(body)}

	var payload dto.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		ferr.Message = payload.Message
		if ferr.Message == "" {
			ferr.Message = payload.Error
		}
		ferr.Hint = payload.Hint
		if pretty, err := json.MarshalIndent(payload, "", "  "); err == nil {
			ferr.Raw = string(pretty)
		}
	}
	return ferr
}
