package engine

import (
	"context"
	"time"
)

// MetricsRecorder receives operation outcomes from the driver. Recorders
// must tolerate concurrent calls; the engine invokes them once per year plus
// once per year with clamp counts.
type MetricsRecorder interface {
	// Observe records one operation outcome and its duration.
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	// AddClampedDraws accumulates risk draws that were clamped into [0,1].
	AddClampedDraws(ctx context.Context, n int)
}

// Tracer starts one span per traced operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span, recording the error outcome if any.
type TraceSpan interface {
	End(err error)
}

// NopMetricsRecorder discards all observations.
type NopMetricsRecorder struct{}

// Observe implements MetricsRecorder.
func (NopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// AddClampedDraws implements MetricsRecorder.
func (NopMetricsRecorder) AddClampedDraws(context.Context, int) {}

// NopTracer produces spans that do nothing.
type NopTracer struct{}

// Start implements Tracer.
func (NopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) End(error) {}
