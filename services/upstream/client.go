package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrUnreachable marks a transport-level failure: the upstream never produced
// an HTTP response. Callers use it to tell "upstream said no" apart from
// "upstream is gone".
var ErrUnreachable = errors.New("upstream unreachable")

// Result is one completed upstream exchange.
type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Client is the shared HTTP client for all three upstreams. Timeouts are left
// to the transport defaults; this layer enforces none of its own.
type Client struct {
	client *http.Client
}

func NewClient() *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		client: &http.Client{Transport: transport},
	}
}

// NewClientWith wraps an existing http.Client; used by tests and embedders
// that bring their own transport.
func NewClientWith(hc *http.Client) *Client {
	return &Client{client: hc}
}

// Do performs a single upstream call. Headers are attached verbatim. A non-2xx
// status is not an error here; only transport failures return ErrUnreachable.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating upstream request: %w", err)
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("Upstream call %s %s failed: %v", method, url, err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Error reading upstream response from %s: %v", url, err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	elapsed := time.Since(start)
	if elapsed > 500*time.Millisecond || resp.StatusCode >= 400 {
		log.Printf("Upstream %s %s -> %d in %v", method, url, resp.StatusCode, elapsed)
	}

	// Some upstreams prefix JSON bodies with a BOM.
	respBody = []byte(strings.TrimPrefix(string(respBody), "\ufeff"))

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Header:     resp.Header,
	}, nil
}

// PostJSON marshals payload and POSTs it.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, payload interface{}) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling upstream payload: %w", err)
	}
	return c.Do(ctx, http.MethodPost, url, header, body)
}

// OK reports whether the exchange ended in a 2xx.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
