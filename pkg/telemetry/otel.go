package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fnr1r/wayland-go/pkg/server"
)

// Default tracer name for engine spans.
const defaultTracerName = "wayland-server"

// TraceConfig configures the OpenTelemetry integration.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "wayland-server").
	TracerName string

	// Filter determines which dispatched messages to trace, keyed by
	// interface name. Return true to trace. If nil, everything is
	// traced.
	Filter func(iface, message string) bool

	// AttributeExtractor adds custom attributes per traced message.
	AttributeExtractor func(c *server.Client, iface, message string) []attribute.KeyValue

	tracer trace.Tracer
}

// TraceOption configures the OpenTelemetry integration.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithMessageFilter sets a filter for which messages to trace.
func WithMessageFilter(filter func(iface, message string) bool) TraceOption {
	return func(c *TraceConfig) {
		c.Filter = filter
	}
}

// WithTraceAttributes sets a custom attribute extractor.
func WithTraceAttributes(extractor func(c *server.Client, iface, message string) []attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.AttributeExtractor = extractor
	}
}

// Tracing returns hooks that emit one span per dispatched request and
// per protocol error. The MessageDispatched hook fires after the
// handler returned, so spans are recorded retroactively with their
// measured duration; they are roots, not children of a caller span,
// because requests originate from the wire rather than from Go code.
//
// The tracer comes from the global OpenTelemetry provider. Configure it
// in main() before starting the loop.
func Tracing(opts ...TraceOption) server.Hooks {
	config := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return server.Hooks{
		MessageDispatched: func(c *server.Client, iface, message string, opcode uint16, took time.Duration) {
			if config.Filter != nil && !config.Filter(iface, message) {
				return
			}
			end := time.Now()
			attrs := []attribute.KeyValue{
				attribute.String("wayland.interface", iface),
				attribute.String("wayland.message", message),
				attribute.Int("wayland.opcode", int(opcode)),
				attribute.String("wayland.client", c.TraceID),
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(c, iface, message)...)
			}

			_, span := config.tracer.Start(
				context.Background(),
				fmt.Sprintf("%s.%s", iface, message),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
				trace.WithTimestamp(end.Add(-took)),
			)
			span.SetStatus(codes.Ok, "")
			span.End(trace.WithTimestamp(end))
		},

		ProtocolError: func(c *server.Client, object uint32, code uint32, msg string) {
			_, span := config.tracer.Start(
				context.Background(),
				"wayland.protocol_error",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("wayland.client", c.TraceID),
					attribute.Int64("wayland.object", int64(object)),
					attribute.Int64("wayland.error_code", int64(code)),
				),
			)
			span.SetStatus(codes.Error, msg)
			span.End()
		},
	}
}
