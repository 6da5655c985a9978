package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/johan-st/sparql-tui/internal/config"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client talks to the query service over HTTP.
type Client struct {
	queryURL    string
	examplesURL string
	httpClient  *http.Client
	logger      *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the service described by cfg.
func NewClient(cfg config.ServiceConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("service url must be http or https, got %q", cfg.URL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("service url has no host: %q", cfg.URL)
	}

	c := &Client{
		queryURL:    base.JoinPath(cfg.QueryPath).String(),
		examplesURL: base.JoinPath(cfg.ExamplesPath).String(),
		httpClient:  &http.Client{Timeout: cfg.GetTimeout()},
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute submits a query. A decodable reply is returned as-is, including a
// logical failure (Success false). Everything else is a *TransportError.
func (c *Client) Execute(ctx context.Context, query string) (*ExecutionResponse, error) {
	payload, err := json.Marshal(ExecutionRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: "query request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("query request failed", "url", c.queryURL, "err", err)
		return nil, &TransportError{Op: "query request", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: "query request", Detail: "failed to read response", Err: err}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	var out ExecutionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		if !ok {
			return nil, &TransportError{Op: "query request", Detail: "unexpected status " + resp.Status}
		}
		return nil, &TransportError{Op: "query request", Detail: "malformed response", Err: err}
	}
	if !ok && out.Success {
		return nil, &TransportError{Op: "query request", Detail: "unexpected status " + resp.Status}
	}

	c.logger.Debug("query executed",
		"status", resp.StatusCode,
		"success", out.Success,
		"rows", out.Results.Len(),
		"took", time.Since(start))
	return &out, nil
}

// Examples fetches the example-query list.
func (c *Client) Examples(ctx context.Context) ([]Example, error) {
	resp, err := c.get(ctx, c.examplesURL)
	if err != nil {
		return nil, &TransportError{Op: "examples request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "examples request", Detail: "unexpected status " + resp.Status}
	}

	var examples []Example
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&examples); err != nil {
		return nil, &TransportError{Op: "examples request", Detail: "malformed response", Err: err}
	}
	return examples, nil
}

// Ping checks that the service answers the examples endpoint with a 2xx status.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, c.examplesURL)
	if err != nil {
		return &TransportError{Op: "probe", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "probe", Detail: "unexpected status " + resp.Status}
	}
	return nil
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}
