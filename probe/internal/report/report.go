// Package report defines the scenario Outcome and the sinks that deliver it
// to CI systems and other consumers.
package report

import (
	"context"
)

// Outcome is the aggregate result of one scenario run. Created fresh per
// scenario, populated incrementally as checks pass, emitted exactly once.
type Outcome struct {
	RunID       string   `json:"run_id"`
	Scenario    string   `json:"scenario"`
	Success     bool     `json:"success"`
	Error       string   `json:"error"`
	Blocks      []string `json:"blocks,omitempty"`  // newly registered block types
	Scripts     []string `json:"scripts,omitempty"` // newly loaded script ids
	Styles      []string `json:"styles,omitempty"`  // newly loaded style ids
	Screenshots []string `json:"screenshots,omitempty"`
	RunURL      string   `json:"run_url,omitempty"`
	StartedAt   int64    `json:"started_at"`  // epoch milliseconds
	FinishedAt  int64    `json:"finished_at"` // epoch milliseconds
}

// Sink delivers outcomes to a backend. Deliveries are fire-and-forget from
// the scenario's point of view: a failing sink never changes a verdict.
type Sink interface {
	Send(ctx context.Context, out Outcome) error
	Close() error
}
