package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumented wraps an Orchestrator with tracing and metrics. The wrapped
// orchestrator is unchanged; callers opt in by constructing this decorator.
type Instrumented struct {
	inner  *Orchestrator
	tracer trace.Tracer
	meter  metric.Meter

	callsCounter     metric.Int64Counter
	failuresCounter  metric.Int64Counter
	timeoutsCounter  metric.Int64Counter
	callDurationHist metric.Float64Histogram
}

// NewInstrumented initializes the decorator and its instruments.
func NewInstrumented(inner *Orchestrator, tracer trace.Tracer, meter metric.Meter) *Instrumented {
	i := &Instrumented{inner: inner, tracer: tracer, meter: meter}
	i.callsCounter, _ = meter.Int64Counter("tool_calls_total",
		metric.WithDescription("Total number of tool calls executed"))
	i.failuresCounter, _ = meter.Int64Counter("tool_calls_failed_total",
		metric.WithDescription("Total number of tool calls that failed"))
	i.timeoutsCounter, _ = meter.Int64Counter("tool_calls_timed_out_total",
		metric.WithDescription("Total number of tool calls that timed out"))
	i.callDurationHist, _ = meter.Float64Histogram("tool_call_duration_seconds",
		metric.WithDescription("Duration of individual tool calls in seconds"))
	return i
}

// Discover traces fleet discovery and records the resulting tool count.
func (i *Instrumented) Discover(ctx context.Context) error {
	ctx, span := i.tracer.Start(ctx, "Orchestrator.Discover")
	defer span.End()

	err := i.inner.Discover(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "Discovery failed")
		span.RecordError(err)
		return err
	}
	stats := i.inner.Stats()
	span.SetAttributes(
		attribute.Int("servers", stats.Servers),
		attribute.Int("tools", stats.Tools),
	)
	return nil
}

// Call traces one tool call and records outcome metrics.
func (i *Instrumented) Call(ctx context.Context, name string, args map[string]any) *CallRecord {
	ctx, span := i.tracer.Start(ctx, "Orchestrator.Call",
		trace.WithAttributes(attribute.String("tool_name", name)))
	defer span.End()

	i.callsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool_name", name),
	))

	record := i.inner.Call(ctx, name, args)
	duration := record.Finished.Sub(record.Started)
	i.callDurationHist.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool_name", record.Tool),
		attribute.String("server", record.Server),
	))

	span.SetAttributes(
		attribute.String("call_id", record.ID),
		attribute.String("status", string(record.Status)),
		attribute.Bool("success", record.Result.Success),
	)

	if record.Status == CallTimedOut {
		i.timeoutsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool_name", record.Tool),
		))
		span.SetStatus(codes.Error, "Tool call timed out")
	} else if !record.Result.Success {
		kind := "unknown"
		if record.Result.Error != nil {
			kind = string(record.Result.Error.Kind)
		}
		i.failuresCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool_name", record.Tool),
			attribute.String("error_kind", kind),
		))
		span.SetStatus(codes.Error, "Tool call failed")
	}
	return record
}

// Handle traces one full intent round trip. The tool call inside it goes
// through the instrumented Call, so call metrics cover REPL traffic too.
func (i *Instrumented) Handle(ctx context.Context, intent string) string {
	ctx, span := i.tracer.Start(ctx, "Orchestrator.Handle")
	defer span.End()
	return i.inner.handle(ctx, intent, i)
}

// Stats passes through to the wrapped orchestrator.
func (i *Instrumented) Stats() Stats { return i.inner.Stats() }
