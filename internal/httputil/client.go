// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// DefaultMaxBodyBytes caps response bodies read by Client helpers.
const DefaultMaxBodyBytes int64 = 64 << 20

// ErrBodyTooLarge is returned when a response exceeds the body limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// errServerFailure marks 5xx responses inside the breaker so they count as
// failures while the response still reaches the caller.
var errServerFailure = errors.New("server failure")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// IsNotFound reports whether err is an HTTP 404 or 410.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusGone)
}

// Options configures a Client.
type Options struct {
	HTTP    types.HTTPConfig
	Retry   types.RetryConfig
	Breaker types.BreakerConfig

	// RatePerSecond and Burst configure the limiter; zero disables it.
	RatePerSecond float64
	Burst         int

	// Header is added to every request (auth tokens, API keys).
	Header http.Header

	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Client is the HTTP client owned by one adapter. It carries that
// provider's auth headers, rate limit, circuit breaker, and retry policy.
type Client struct {
	name      string
	http      *http.Client
	policy    RetryPolicy
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	userAgent string
	header    http.Header
	maxBody   int64
}

// NewClient builds a Client for the named adapter.
func NewClient(name string, opts Options) *Client {
	timeout := opts.HTTP.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		name:      name,
		http:      &http.Client{Timeout: timeout, Transport: http.DefaultTransport.(*http.Transport).Clone()},
		policy:    PolicyFromConfig(opts.Retry),
		userAgent: opts.HTTP.UserAgent,
		header:    opts.Header.Clone(),
		maxBody:   opts.MaxBodyBytes,
	}
	if c.maxBody <= 0 {
		c.maxBody = DefaultMaxBodyBytes
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	if opts.Breaker.Enabled {
		c.breaker = newBreaker(name, opts.Breaker, opts.Logger)
	}
	return c
}

func newBreaker(name string, cfg types.BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := cfg.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			// Cancellation by the caller says nothing about the provider.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("adapter", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// Name returns the adapter name the client was built for.
func (c *Client) Name() string { return c.name }

// Do sends req after waiting on the rate limiter, under the circuit breaker
// and retry policy. Non-2xx responses are returned, not converted to errors.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, vs := range c.header {
		if req.Header.Get(k) == "" {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	if c.breaker == nil {
		return c.policy.Do(ctx, c.http, req)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.policy.Do(ctx, c.http, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerFailure
		}
		return resp, nil
	})
	if errors.Is(err, errServerFailure) {
		return result.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// Get issues a GET with the given Accept header and returns the response
// when the status is 2xx; any other status becomes a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}
	return resp, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.Get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBody)).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// GetXML fetches rawURL and decodes the XML body into v.
func (c *Client) GetXML(ctx context.Context, rawURL string, v any) error {
	resp, err := c.Get(ctx, rawURL, "application/xml")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := xml.NewDecoder(io.LimitReader(resp.Body, c.maxBody)).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// Document is a fetched response body.
type Document struct {
	Body        []byte
	ContentType string
	// URL is the final URL after redirects.
	URL string
}

// Fetch downloads rawURL into memory, enforcing the body size limit.
func (c *Client) Fetch(ctx context.Context, rawURL, accept string) (*Document, error) {
	resp, err := c.Get(ctx, rawURL, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, ErrBodyTooLarge
	}
	return &Document{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL.String(),
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
