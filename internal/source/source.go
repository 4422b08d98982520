// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source defines what every external provider adapter shares: its
// kind, the error taxonomy, and how adapter failures are classified before
// they are logged and swallowed.
package source

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an adapter by the data it provides.
type Kind string

const (
	KindDataset  Kind = "dataset"
	KindCitation Kind = "citation"
	KindFullText Kind = "fulltext"
)

var (
	// ErrAdapterTimeout is reported when an adapter exceeds its timeout.
	ErrAdapterTimeout = errors.New("adapter timeout")

	// ErrAllSourcesFailed is returned when no source produced anything:
	// "no results from any source", as opposed to zero matches.
	ErrAllSourcesFailed = errors.New("no results from any source")

	// ErrNoFullText is returned by a full-text adapter that has no copy of
	// the publication. It is a miss, not a failure.
	ErrNoFullText = errors.New("no full text available")
)

// AdapterError wraps a network or parse failure with the adapter identity.
type AdapterError struct {
	Adapter string
	Op      string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Adapter, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Status is the short outcome label used in logs, metrics, and reports.
type Status string

const (
	StatusOK        Status = "ok"
	StatusCached    Status = "cached"
	StatusMiss      Status = "miss"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Classify converts a raw adapter error into the taxonomy. parent is the
// caller's context: a deadline on the adapter's own context is a timeout,
// while cancellation of the parent is reported as cancelled.
func Classify(parent context.Context, adapter, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoFullText) || errors.Is(err, ErrAdapterTimeout) {
		return err
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return err
	}
	if parent != nil && parent.Err() != nil {
		return &AdapterError{Adapter: adapter, Op: op, Err: parent.Err()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", adapter, op, ErrAdapterTimeout)
	}
	return &AdapterError{Adapter: adapter, Op: op, Err: err}
}

// StatusOf maps a classified error to its Status label.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNoFullText):
		return StatusMiss
	case errors.Is(err, ErrAdapterTimeout):
		return StatusTimeout
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	case errors.Is(err, context.DeadlineExceeded):
		// Deadline of a parent context, not the adapter's own budget.
		return StatusCancelled
	default:
		return StatusError
	}
}
