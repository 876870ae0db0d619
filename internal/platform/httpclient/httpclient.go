// Package httpclient provides the shared HTTP fetch capability used by
// recorders: a tuned client with default headers, an optional request rate
// limit, and non-2xx responses surfaced as errors.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 16

	// BrowserUserAgent is sent by raw-stream recordings; some IPTV
	// relays refuse clients that do not look like a browser.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:105.0) Gecko/20100101 Firefox/105.0"
)

// StatusError reports a response whose status code was not 2xx.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	Timeout time.Duration
	// Headers are set on every request (e.g. User-Agent).
	Headers map[string]string
	// RequestsPerSecond caps outgoing requests; 0 disables limiting.
	RequestsPerSecond float64
	// Burst is the limiter burst size; defaults to 1.
	Burst int
}

// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    *rate.Limiter
}

// New returns a Client with its own pooled transport.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: MaxIdleConnsPerHost,
				IdleConnTimeout:     DefaultIdleConnTimeout,
			},
		},
		headers: opts.Headers,
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// WithHeaders returns a copy of c sharing its transport and limiter but
// sending headers in addition to (and overriding) c's own.
func (c *Client) WithHeaders(headers map[string]string) *Client {
	merged := make(map[string]string, len(c.headers)+len(headers))
	for k, v := range c.headers {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	return &Client{httpClient: c.httpClient, headers: merged, limiter: c.limiter}
}

// Get fetches url and returns the full body. Transport failures and non-2xx
// statuses are returned as errors; a 2xx response with an empty body is a
// successful, empty result.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, url, c.httpClient)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

// Open starts a GET for url and returns the response body for streaming.
// The client timeout is not applied so long-lived streams are not cut off;
// cancel ctx to stop. Caller must close the returned body.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	streaming := &http.Client{Transport: c.httpClient.Transport}
	resp, err := c.do(ctx, url, streaming)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, url string, hc *http.Client) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
