package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the MiniMax API endpoint.
	DefaultBaseURL = "https://api.minimax.chat"

	// DefaultTimeout bounds one HTTP request.
	DefaultTimeout = 60 * time.Second
)

// Client calls the MiniMax API.
type Client struct {
	apiKey  string
	baseURL string
	hc      *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets the HTTP client. It overrides WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BaseURL returns the API endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the status block every MiniMax response carries.
type envelope struct {
	BaseResp *struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
	TraceID string `json:"trace_id"`
}

// err returns the API error in e, or nil when the call succeeded.
func (e *envelope) err(httpStatus int) error {
	if e.BaseResp != nil && e.BaseResp.StatusCode != 0 {
		return &Error{
			Code:       e.BaseResp.StatusCode,
			Message:    e.BaseResp.StatusMsg,
			TraceID:    e.TraceID,
			HTTPStatus: httpStatus,
		}
	}
	return nil
}

// post sends body as JSON to path and decodes the response into out.
// A failed status, either in HTTP or in base_resp, is returned as *Error.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("minimax: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("minimax: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("minimax: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("minimax: read %s response: %w", path, err)
	}

	var env envelope
	jsonErr := json.Unmarshal(raw, &env)
	if jsonErr == nil {
		if err := env.err(resp.StatusCode); err != nil {
			return err
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{
			Code:       resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
			HTTPStatus: resp.StatusCode,
		}
	}
	if jsonErr != nil {
		return fmt.Errorf("minimax: decode %s response: %w", path, jsonErr)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("minimax: decode %s response: %w", path, err)
		}
	}
	return nil
}
