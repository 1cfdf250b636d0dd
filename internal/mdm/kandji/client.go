// Package kandji fetches macOS device records from the Kandji API.
package kandji

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/laptoptracker/laptop-tracker/internal/normalize"
)

// Name is the vendor key for Kandji.
const Name = normalize.VendorKandji

const (
	// maxBodyBytes caps a single page read.
	maxBodyBytes = 32 << 20
	// maxPages stops a server that ignores the offset parameter.
	maxPages = 500
	// maxErrorBody caps the vendor text carried in a StatusError.
	maxErrorBody = 2048
)

// ErrInvalidJSON is returned when Kandji answers 2xx with an unreadable body.
var ErrInvalidJSON = errors.New("invalid JSON response from Kandji API")

// StatusError is returned for non-2xx answers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Kandji API returned status %d: %s", e.StatusCode, e.Body)
}

// Config holds the Kandji connection settings.
type Config struct {
	// DevicesURL is the full device list endpoint.
	DevicesURL string
	Token      string
	// PageSize enables limit/offset pagination when positive.
	PageSize int
}

// Client talks to the Kandji device API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Kandji client.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With("component", "kandji"),
	}
}

// Name implements mdm.Source.
func (c *Client) Name() string {
	return Name
}

// FetchDevices returns every device, following offset pagination.
func (c *Client) FetchDevices(ctx context.Context) ([]map[string]any, error) {
	var all []map[string]any
	offset := 0

	for page := 0; page < maxPages; page++ {
		records, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)

		if c.cfg.PageSize <= 0 || len(records) < c.cfg.PageSize {
			c.logger.Debug("fetched devices", "count", len(all), "pages", page+1)
			return all, nil
		}
		offset += len(records)
	}

	c.logger.Warn("page limit reached, returning partial device list",
		"pages", maxPages,
		"count", len(all),
	)
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, offset int) ([]map[string]any, error) {
	target, err := c.pageURL(offset)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build kandji request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kandji request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read kandji response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(body)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: text}
	}

	records, err := normalize.RawRecords(body, "devices", "results")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return records, nil
}

func (c *Client) pageURL(offset int) (string, error) {
	u, err := url.Parse(c.cfg.DevicesURL)
	if err != nil {
		return "", fmt.Errorf("parse kandji url: %w", err)
	}
	if c.cfg.PageSize > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(c.cfg.PageSize))
		q.Set("offset", strconv.Itoa(offset))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
