package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultUserAgent    = "signal-audit/1.0"
	DefaultMaxBodyBytes = 5 << 20
)

// ErrEmptyURL is returned when Fetch is called without a target.
var ErrEmptyURL = errors.New("scan: url is required")

// Fetcher retrieves a page over HTTP and runs Detect on it.
type Fetcher struct {
	Client       *http.Client
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// Limiter, when set, throttles outbound requests.
	Limiter *rate.Limiter
}

// NewFetcher returns a Fetcher with the default client and limits.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		Client:       http.DefaultClient,
		Timeout:      timeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// WithRateLimit throttles f to rps requests per second with the given burst.
// rps <= 0 removes the limit.
func (f *Fetcher) WithRateLimit(rps float64, burst int) *Fetcher {
	if rps <= 0 {
		f.Limiter = nil
		return f
	}
	if burst <= 0 {
		burst = 1
	}
	f.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return f
}

// Fetch downloads url and detects its signatures. Duration covers the request
// and the body read.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	if url == "" {
		return Result{}, ErrEmptyURL
	}
	url = NormalizeURL(url)

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("rate limit %s: %w", url, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Result{}, fmt.Errorf("read body %s: %w", url, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Result{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	return Detect(url, string(body), time.Since(start).Milliseconds()), nil
}
