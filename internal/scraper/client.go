package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// BrowserUserAgent is sent to HTML sites, several of which refuse requests
// that do not look like a browser.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// minPageBytes is the smallest body we accept as a real title page.
const minPageBytes = 500

const maxBodyBytes = 8 << 20

type ClientOptions struct {
	Name              string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	UserAgent         string
	RetryDelay        time.Duration
	Transport         http.RoundTripper
}

// Client is the per-source outbound HTTP client. Every request, including
// those made by the GraphQL client through HTTP, waits on the source's
// limiter first.
type Client struct {
	name       string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = BrowserUserAgent
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		name: opts.Name,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &limitedTransport{
				base:      base,
				limiter:   rate.NewLimiter(limit, burst),
				userAgent: opts.UserAgent,
			},
		},
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

// HTTP exposes the underlying client for libraries that issue their own requests.
func (c *Client) HTTP() *http.Client { return c.http }

// statusError is a non-2xx answer from an upstream API.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// GetJSON fetches url and decodes the body into target. Transport errors,
// 429 and 5xx are retried; 404 maps to ErrMediaNotFound and anything else
// to ErrSourceFetch.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	var body []byte
	err := retry.Do(
		func() error {
			b, err := c.get(ctx, url, "application/json")
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrMediaNotFound, url)
		}
		return fmt.Errorf("%w: %v", ErrSourceFetch, err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrSourceFetch, url, err)
	}
	return nil
}

// GetPage fetches an HTML page once. A non-2xx status or a suspiciously
// short body is reported as ErrFetchBlocked.
func (c *Client) GetPage(ctx context.Context, url string) (string, error) {
	b, err := c.get(ctx, url, "text/html,application/xhtml+xml")
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return "", fmt.Errorf("%w: status %d", ErrFetchBlocked, se.Code)
		}
		return "", fmt.Errorf("%w: %v", ErrSourceFetch, err)
	}
	if len(b) < minPageBytes {
		return "", fmt.Errorf("%w: page body too short (%d bytes)", ErrFetchBlocked, len(b))
	}
	return string(b), nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func isRetryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	// transport failures
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type limitedTransport struct {
	base      http.RoundTripper
	limiter   *rate.Limiter
	userAgent string
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}
