package adapters

import (
	"context"
	"time"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
	"github.com/rs/zerolog"
)

// ZerologTracer implements the Tracer interface using zerolog.
type ZerologTracer struct {
	logger zerolog.Logger
}

// NewZerologTracer creates a new zerolog tracer.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{
		logger: logger,
	}
}

// StartSpan attaches a span-scoped logger to ctx and returns a finish function
// that logs the span duration and outcome.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	spanLogger := t.parent(ctx).With().Str("span", name).Fields(attrs).Logger()
	ctx = spanLogger.WithContext(ctx)

	startTime := time.Now()
	spanLogger.Debug().Str("event", "span_start").Msg("Starting span")

	finish := func(err error) {
		event := spanLogger.Info()
		if err != nil {
			event = spanLogger.Error().Err(err)
		}
		event.
			Str("event", "span_end").
			Dur("duration", time.Since(startTime)).
			Msg("Ending span")
	}

	return ctx, finish
}

// Event logs a tracing event with the current span context.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	t.parent(ctx).Debug().
		Fields(attrs).
		Str("event", name).
		Msg("Tracing event")
}

// parent prefers the span logger stored in ctx over the root logger.
func (t *ZerologTracer) parent(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &t.logger
}

// Ensure ZerologTracer implements the Tracer interface.
var _ ports.Tracer = (*ZerologTracer)(nil)
