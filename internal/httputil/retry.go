// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP plumbing shared by every source adapter:
// one retry policy, per-provider rate limiting, and circuit breaking.
package httputil

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// RetryBaseDelay is the base delay of DefaultPolicy. Tests override this to
// avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// RetryPolicy decides how often and how long to back off between attempts.
type RetryPolicy struct {
	// MaxAttempts includes the first try. Values below 1 mean 1.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultPolicy returns three attempts with doubling backoff from
// RetryBaseDelay.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   RetryBaseDelay,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

// PolicyFromConfig builds a policy, filling zero fields from DefaultPolicy.
func PolicyFromConfig(cfg types.RetryConfig) RetryPolicy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	return p
}

// Backoff returns the delay before retry number attempt (1-based):
// BaseDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryableError reports whether a transport error is transient. Context
// errors are never retried.
func retryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// Do executes req, retrying transient transport errors and retryable
// statuses. After the last attempt a retryable response is returned as-is so
// the caller can inspect it. A context cancelled during backoff returns
// ctx.Err().
func (p RetryPolicy) Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	limit := p.attempts()
	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		switch {
		case err != nil:
			if attempt >= limit || !retryableError(err) {
				return nil, err
			}
		case !RetryableStatus(resp.StatusCode) || attempt >= limit:
			return resp, nil
		default:
			// Drain and close the body before retrying.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}
}
