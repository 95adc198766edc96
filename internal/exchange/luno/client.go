package luno

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BaseURL is the Luno REST API v1 endpoint.
const BaseURL = "https://api.luno.com/api/1"

// DefaultTimeout bounds every outbound call so a venue stall cannot block
// the loop that issued it.
const DefaultTimeout = 15 * time.Second

// Client is the authenticated gateway to the Luno REST API. Requests use
// HTTP Basic auth with the exchange-issued key/secret pair. In dry-run mode
// no mutating call ever reaches the network.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	dryRun     bool
	httpClient *http.Client
}

// Config holds the configuration for the Luno client.
type Config struct {
	APIKey    string
	APISecret string
	DryRun    bool
	BaseURL   string        // defaults to BaseURL
	Timeout   time.Duration // defaults to DefaultTimeout
}

// NewClient creates a new Luno client.
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		apiKey:     config.APIKey,
		apiSecret:  config.APISecret,
		baseURL:    baseURL,
		dryRun:     config.DryRun,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsDryRun returns whether the client simulates mutating calls locally.
func (c *Client) IsDryRun() bool {
	return c.dryRun
}

// get issues an authenticated GET and returns status code and body.
func (c *Client) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	return c.do(req)
}

// postForm issues an authenticated POST with form-encoded fields.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, NewTransportError(req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, NewTransportError(req.URL.Path, err)
	}
	return resp.StatusCode, body, nil
}
