// Package nepse provides a client for the NEPSE market data API.
package nepse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://www.nepalstock.com.np/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// MarketStatus is the live market-open indicator.
type MarketStatus struct {
	IsOpen string `json:"isOpen"`
	AsOf   string `json:"asOf"`
	ID     int64  `json:"id"`
}

// Open reports whether the market is currently accepting trades.
func (s *MarketStatus) Open() bool {
	return s.IsOpen == "OPEN"
}

// Client talks to the exchange API. All requests are rate limited and carry
// the session authorization token, refreshed on expiry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu    sync.Mutex
	token string
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets the request rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new exchange API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-2xx response from the exchange
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nepse api error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// authenticate obtains a fresh session token.
func (c *Client) authenticate(ctx context.Context) error {
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, "/authenticate/prove", nil, false, &resp); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("failed to authenticate: empty access token")
	}

	c.mu.Lock()
	c.token = resp.AccessToken
	c.mu.Unlock()
	return nil
}

// do performs a rate-limited GET request, decoding the JSON response into
// result. Authenticated requests retry once with a fresh token on 401.
func (c *Client) do(ctx context.Context, path string, params url.Values, authed bool, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token == "" {
			if err := c.authenticate(ctx); err != nil {
				return err
			}
		}
	}

	body, status, err := c.get(ctx, path, params, authed)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && authed {
		// Session token expired; refresh once and retry.
		if err := c.authenticate(ctx); err != nil {
			return err
		}
		body, status, err = c.get(ctx, path, params, authed)
		if err != nil {
			return err
		}
	}
	if status < 200 || status > 299 {
		return &APIError{StatusCode: status, Message: http.StatusText(status), Endpoint: path}
	}

	if result == nil {
		return nil
	}
	if raw, ok := result.(*json.RawMessage); ok {
		*raw = json.RawMessage(body)
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, authed bool) ([]byte, int, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		req.Header.Set("Authorization", "Salter "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// MarketStatus fetches the live market-open indicator.
func (c *Client) MarketStatus(ctx context.Context) (*MarketStatus, error) {
	var status MarketStatus
	if err := c.do(ctx, "/nots/nepse-data/market-open", nil, true, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// MarketSummary fetches the aggregate market summary as raw JSON for
// pass-through responses.
func (c *Client) MarketSummary(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "/nots/market-summary", nil, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// PriceVolumeHistory fetches the full price/volume table for one business
// date. The exchange wraps the rows in a paginated envelope; only the
// content matters here.
func (c *Client) PriceVolumeHistory(ctx context.Context, date time.Time) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("businessDate", date.Format("2006-01-02"))
	params.Set("size", "500")

	var resp struct {
		Content []map[string]any `json:"content"`
	}
	if err := c.do(ctx, "/nots/market/history/security", params, true, &resp); err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// SectorSummary fetches today's sector-wise turnover summary.
func (c *Client) SectorSummary(ctx context.Context) ([]map[string]any, error) {
	var rows []map[string]any
	if err := c.do(ctx, "/nots/sectorwise", nil, true, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SectorOverview fetches the sector summary as raw JSON for pass-through
// responses.
func (c *Client) SectorOverview(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "/nots/sectorwise", nil, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CompanyList fetches the complete current symbol/sector mapping.
func (c *Client) CompanyList(ctx context.Context) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("nonDelisted", "true")

	var rows []map[string]any
	if err := c.do(ctx, "/nots/security", params, true, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReportsForSecurity fetches the fiscal reports for one security.
func (c *Client) ReportsForSecurity(ctx context.Context, securityID int64) (json.RawMessage, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/nots/application/reports/%d", securityID)
	if err := c.do(ctx, path, nil, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DividendsForSecurity fetches the dividend history for one security.
func (c *Client) DividendsForSecurity(ctx context.Context, securityID int64) (json.RawMessage, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/nots/application/dividend/%d", securityID)
	if err := c.do(ctx, path, nil, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
