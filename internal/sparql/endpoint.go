package sparql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultsMediaType is the media type requested from the endpoint.
const ResultsMediaType = "application/sparql-results+json"

const maxResultBytes = 64 << 20

// ErrUnreachable is wrapped by errors from endpoints that could not be
// connected to.
var ErrUnreachable = errors.New("sparql endpoint unreachable")

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sparql endpoint returned status %d", e.Code)
}

// Response is a decoded endpoint reply plus its raw body.
type Response struct {
	Raw     jsoniter.RawMessage
	Results *Results
}

// Endpoint is a SPARQL 1.1 protocol query endpoint.
type Endpoint struct {
	url    string
	client *http.Client
}

// NewEndpoint creates an endpoint client. A positive timeout bounds each request.
func NewEndpoint(rawURL string, timeout time.Duration) (*Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint url must be http or https, got %q", rawURL)
	}
	return &Endpoint{
		url:    u.String(),
		client: &http.Client{Timeout: timeout},
	}, nil
}

// URL returns the endpoint address.
func (e *Endpoint) URL() string { return e.url }

// Select sends query as a form-encoded POST and decodes the JSON results.
func (e *Endpoint) Select(ctx context.Context, query string) (*Response, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", ResultsMediaType)

	resp, err := e.client.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var results Results
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode sparql results: %w", err)
	}
	return &Response{Raw: body, Results: &results}, nil
}

// isUnreachable reports connection-level failures, excluding timeouts.
func isUnreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
