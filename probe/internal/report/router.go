package report

import (
	"context"
	"log/slog"
)

// Callback delivers outcomes to an in-process function. Zero serialisation.
type Callback struct {
	fn func(ctx context.Context, out Outcome) error
}

// NewCallback creates a Callback sink.
func NewCallback(fn func(ctx context.Context, out Outcome) error) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, out Outcome) error { return c.fn(ctx, out) }
func (c *Callback) Close() error                                { return nil }

// Router fans out outcomes to all configured sinks. One sink error does not
// block the others; errors are logged and the first encountered is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, out Outcome) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, out); err != nil {
			r.logger.Warn("report: send outcome failed", "scenario", out.Scenario, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
