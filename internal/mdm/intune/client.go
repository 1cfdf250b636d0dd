// Package intune fetches Windows device records from Microsoft Graph.
package intune

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/laptoptracker/laptop-tracker/internal/normalize"
)

// Name is the vendor key for Intune.
const Name = normalize.VendorIntune

// GraphScope is the client-credentials scope for Microsoft Graph.
const GraphScope = "https://graph.microsoft.com/.default"

// DefaultGraphEndpoint is used when no endpoint is configured.
const DefaultGraphEndpoint = "https://graph.microsoft.com/v1.0"

const (
	windowsFilter = "operatingSystem eq 'Windows'"
	maxBodyBytes  = 32 << 20
	maxPages      = 500
)

// TokenURL returns the Azure AD v2 token endpoint for a tenant.
func TokenURL(tenantID string) string {
	return "https://login.microsoftonline.com/" + url.PathEscape(tenantID) + "/oauth2/v2.0/token"
}

// NewTokenSource returns a cached client-credentials token source.
// An empty tokenURL selects the tenant's Azure AD endpoint.
func NewTokenSource(ctx context.Context, tenantID, clientID, clientSecret, tokenURL string) oauth2.TokenSource {
	if tokenURL == "" {
		tokenURL = TokenURL(tenantID)
	}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{GraphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cfg.TokenSource(ctx)
}

// Client lists Windows managed devices through Graph.
type Client struct {
	endpoint   string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an Intune client.
func New(endpoint string, tokens oauth2.TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultGraphEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger.With("component", "intune"),
	}
}

// Name implements mdm.Source.
func (c *Client) Name() string {
	return Name
}

// DevicesURL is the first page of the Windows managed device query.
func (c *Client) DevicesURL() string {
	return c.endpoint + "/deviceManagement/managedDevices?$filter=" + url.PathEscape(windowsFilter)
}

// FetchDevices returns every Windows managed device, following
// @odata.nextLink.
func (c *Client) FetchDevices(ctx context.Context) ([]map[string]any, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, tokenError(err)
	}

	var all []map[string]any
	next := c.DevicesURL()

	for page := 0; page < maxPages && next != ""; page++ {
		records, nextLink, err := c.fetchPage(ctx, next, tok.AccessToken)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		next = nextLink
	}

	if next != "" {
		c.logger.Warn("page limit reached, returning partial device list",
			"pages", maxPages,
			"count", len(all),
		)
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, target, accessToken string) ([]map[string]any, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read graph response: %w", err)
	}

	if gerr := c.graphError(resp.StatusCode, body, accessToken); gerr != nil {
		c.logger.Warn("graph request failed",
			"status", resp.StatusCode,
			"code", gerr.Code,
			"message", gerr.Message,
		)
		return nil, "", gerr
	}

	var envelope struct {
		NextLink string `json:"@odata.nextLink"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", &GraphError{
			StatusCode: resp.StatusCode,
			Message:    "invalid JSON response from Graph: " + err.Error(),
			Hint:       HintGeneric,
		}
	}

	records, err := normalize.RawRecords(body, "value")
	if err != nil {
		return nil, "", &GraphError{
			StatusCode: resp.StatusCode,
			Message:    err.Error(),
			Hint:       HintGeneric,
		}
	}
	return records, envelope.NextLink, nil
}

// graphError inspects a response for a Graph error object or a failing
// status. It returns nil for a usable page.
func (c *Client) graphError(status int, body []byte, accessToken string) *GraphError {
	var env graphErrorBody
	_ = json.Unmarshal(body, &env)

	ok := status >= 200 && status <= 299
	if ok && env.Error == nil {
		return nil
	}

	gerr := &GraphError{StatusCode: status, Hint: HintGeneric}
	if env.Error != nil {
		gerr.Code = env.Error.Code
		gerr.Message = env.Error.Message
		gerr.Raw = rawErrorObject(body)
		gerr.Hint = HintPermissions
	} else {
		gerr.Message = fmt.Sprintf("Graph API returned status %d: %s", status, strings.TrimSpace(string(body)))
		if json.Valid(body) {
			gerr.Raw = json.RawMessage(body)
		}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if hint := roleHint(accessToken); hint != "" {
			gerr.Hint = gerr.Hint + " " + hint
		}
	}
	return gerr
}

func rawErrorObject(body []byte) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil
	}
	return obj["error"]
}

// tokenError converts a token endpoint failure into a GraphError.
func tokenError(err error) error {
	gerr := &GraphError{
		Code:    "token_request_failed",
		Message: err.Error(),
		Hint:    HintGeneric,
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil {
			gerr.StatusCode = rerr.Response.StatusCode
		}
		if rerr.ErrorCode != "" {
			gerr.Code = rerr.ErrorCode
		}
		if rerr.ErrorDescription != "" {
			gerr.Message = rerr.ErrorDescription
		}
		if json.Valid(rerr.Body) {
			gerr.Raw = json.RawMessage(rerr.Body)
		}
	}
	return gerr
}
