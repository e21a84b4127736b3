package probe

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/blockprobe/probe/internal/report"
)

// Outcome is the structured result of one scenario.
type Outcome = report.Outcome

// Sink is the outcome delivery interface.
type Sink = report.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return report.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return report.NewWebhook(url, report.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink. Zero serialisation.
func NewCallbackSink(fn func(ctx context.Context, out Outcome) error) Sink {
	return report.NewCallback(fn)
}

// AddSink appends a sink to the runner's fan-out router. Call before Run.
func (r *Runner) AddSink(s Sink) {
	r.sinks = report.NewRouter(r.logger, r.sinks, s)
}
