package mcp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tidefall/cityscout/mcp"

// DispatchObserver records dispatch signals into OpenTelemetry. With no SDK
// installed the global providers are no-ops, so observation costs nothing.
type DispatchObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewDispatchObserver creates an observer bound to the global meter and
// tracer providers.
func NewDispatchObserver() (*DispatchObserver, error) {
	meter := otel.Meter(instrumentationName)

	invocations, err := meter.Int64Counter(
		"cityscout.dispatch.invocations",
		metric.WithDescription("Number of tool dispatches"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"cityscout.dispatch.latency",
		metric.WithDescription("Tool dispatch latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchObserver{
		tracer:      otel.Tracer(instrumentationName),
		invocations: invocations,
		latency:     latency,
	}, nil
}

// ObserveDispatch records one dispatch result.
func (o *DispatchObserver) ObserveDispatch(ctx context.Context, toolName string, duration time.Duration, errorKind string) {
	if o == nil {
		return
	}

	success := errorKind == ""
	attrs := []attribute.KeyValue{
		attribute.String("tool_name", toolName),
		attribute.Bool("success", success),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error_kind", errorKind))
	}

	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, duration.Seconds(), options)

	if o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(ctx, "tool.dispatch", trace.WithAttributes(attrs...))
	if !success {
		span.SetStatus(codes.Error, errorKind)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
