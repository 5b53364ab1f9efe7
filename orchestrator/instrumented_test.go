package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/denser-ai/toolfleet/mcp"
)

func newInstrumented(t *testing.T, o *Orchestrator) (*Instrumented, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	tracer := sdktrace.NewTracerProvider().Tracer("test")
	return NewInstrumented(o, tracer, meter), reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestInstrumentedHandleRecordsCallMetrics(t *testing.T) {
	m := manifestFor(time.Second,
		toolServer(t, "weather", []mcp.Tool{echoTool("get_current_weather")},
			func(req mcp.CallRequest) mcp.CallResult {
				return mcp.Succeed(map[string]any{"conditions": "clear"})
			}),
	)
	o := New(m)
	require.NoError(t, o.Discover(context.Background()))
	inst, reader := newInstrumented(t, o)

	answer := inst.Handle(context.Background(), "weather in Paris")
	assert.Contains(t, answer, "clear")

	assert.Equal(t, int64(1), counterValue(t, reader, "tool_calls_total"))
	assert.Equal(t, int64(0), counterValue(t, reader, "tool_calls_failed_total"))
}

func TestInstrumentedCallCountsFailures(t *testing.T) {
	m := manifestFor(time.Second,
		toolServer(t, "weather", []mcp.Tool{echoTool("get_current_weather")},
			func(req mcp.CallRequest) mcp.CallResult {
				return mcp.Fail(mcp.KindExecutionError, "upstream down")
			}),
	)
	o := New(m)
	require.NoError(t, o.Discover(context.Background()))
	inst, reader := newInstrumented(t, o)

	record := inst.Call(context.Background(), "get_current_weather", nil)
	require.False(t, record.Result.Success)

	assert.Equal(t, int64(1), counterValue(t, reader, "tool_calls_total"))
	assert.Equal(t, int64(1), counterValue(t, reader, "tool_calls_failed_total"))
	assert.Equal(t, int64(0), counterValue(t, reader, "tool_calls_timed_out_total"))
}

func TestInstrumentedCallCountsTimeouts(t *testing.T) {
	m := manifestFor(100*time.Millisecond,
		toolServer(t, "weather", []mcp.Tool{echoTool("get_current_weather")},
			func(req mcp.CallRequest) mcp.CallResult {
				time.Sleep(400 * time.Millisecond)
				return mcp.Succeed(nil)
			}),
	)
	o := New(m)
	require.NoError(t, o.Discover(context.Background()))
	inst, reader := newInstrumented(t, o)

	record := inst.Call(context.Background(), "get_current_weather", nil)
	require.Equal(t, CallTimedOut, record.Status)

	assert.Equal(t, int64(1), counterValue(t, reader, "tool_calls_timed_out_total"))
	assert.Equal(t, int64(0), counterValue(t, reader, "tool_calls_failed_total"))
}
