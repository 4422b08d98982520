// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FullTextState is the acquisition state of one publication.
type FullTextState string

const (
	FullTextNotStarted FullTextState = "not_started"
	FullTextTrying     FullTextState = "trying"
	FullTextSucceeded  FullTextState = "succeeded"
	FullTextExhausted  FullTextState = "exhausted"
)

// Terminal reports whether the state ends the waterfall.
func (s FullTextState) Terminal() bool {
	return s == FullTextSucceeded || s == FullTextExhausted
}

// AttemptStatus is the result of asking one full-text source.
type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptMiss    AttemptStatus = "miss"
	AttemptTimeout AttemptStatus = "timeout"
	AttemptError   AttemptStatus = "error"
)

// Attempt records one source tried during a waterfall.
type Attempt struct {
	Source   string        `json:"source" yaml:"source"`
	Status   AttemptStatus `json:"status" yaml:"status"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// FullTextOutcome is the result of a full-text acquisition. Attempts only
// grow; empty strings stand for absent values.
type FullTextOutcome struct {
	PublicationID string        `json:"publication_id" yaml:"publication_id"`
	State         FullTextState `json:"state" yaml:"state"`
	Attempts      []Attempt     `json:"attempts" yaml:"attempts"`
	WinningSource string        `json:"winning_source,omitempty" yaml:"winning_source,omitempty"`
	ContentRef    string        `json:"content_ref,omitempty" yaml:"content_ref,omitempty"`
	ContentType   string        `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	CompletedAt   time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`

	// Cached is set on outcomes served from the cache without network I/O.
	Cached bool `json:"-" yaml:"-"`
}

// Succeeded reports whether full text was obtained.
func (o FullTextOutcome) Succeeded() bool {
	return o.State == FullTextSucceeded
}

// AttemptedSources returns the names of the sources tried, in order.
func (o FullTextOutcome) AttemptedSources() []string {
	names := make([]string, len(o.Attempts))
	for i, a := range o.Attempts {
		names[i] = a.Source
	}
	return names
}
