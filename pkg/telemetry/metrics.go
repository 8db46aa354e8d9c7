package telemetry

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fnr1r/wayland-go/pkg/server"
)

// MetricsConfig configures the Prometheus integration.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "wayland").
	Namespace string

	// Subsystem is the metrics subsystem (default: "server").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request handling duration,
	// in seconds. Dispatch handlers are expected to be fast; the default
	// buckets run from 10µs to 100ms.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus integration.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "wayland",
		Subsystem: "server",
		Buckets: []float64{
			0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
		},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus instruments backing a hook set. Useful
// for tests and for custom recording next to the engine's own.
type Metrics struct {
	ClientsTotal     prometheus.Counter
	ClientsActive    prometheus.Gauge
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ProtocolErrors   *prometheus.CounterVec
	DisconnectsTotal *prometheus.CounterVec
}

// NewMetrics registers the engine's instruments with the configured
// registry. Register a given registry at most once; promauto panics on
// duplicate registration, same as everywhere else in the Prometheus
// ecosystem.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		ClientsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "clients_total",
			Help:        "Total number of accepted client connections",
			ConstLabels: config.ConstLabels,
		}),

		ClientsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "clients_active",
			Help:        "Number of currently connected clients",
			ConstLabels: config.ConstLabels,
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of dispatched requests by interface and message",
			ConstLabels: config.ConstLabels,
		}, []string{"interface", "message"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request handler duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"interface"}),

		ProtocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "protocol_errors_total",
			Help:        "Total number of posted protocol errors by code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		DisconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "disconnects_total",
			Help:        "Total number of client disconnects by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),
	}
}

// Hooks returns the observer set feeding these instruments.
func (m *Metrics) Hooks() server.Hooks {
	return server.Hooks{
		ClientConnected: func(*server.Client) {
			m.ClientsTotal.Inc()
			m.ClientsActive.Inc()
		},
		ClientClosed: func(_ *server.Client, reason error) {
			m.ClientsActive.Dec()
			m.DisconnectsTotal.WithLabelValues(disconnectReason(reason)).Inc()
		},
		MessageDispatched: func(_ *server.Client, iface, message string, _ uint16, took time.Duration) {
			m.RequestsTotal.WithLabelValues(iface, message).Inc()
			m.RequestDuration.WithLabelValues(iface).Observe(took.Seconds())
		},
		ProtocolError: func(_ *server.Client, _ uint32, code uint32, _ string) {
			m.ProtocolErrors.WithLabelValues(errorCode(code)).Inc()
		},
	}
}

// Prometheus registers the engine instruments and returns the hook set
// in one step.
func Prometheus(opts ...MetricsOption) server.Hooks {
	return NewMetrics(opts...).Hooks()
}

// disconnectReason folds a teardown cause into a low-cardinality label.
func disconnectReason(err error) string {
	var pe *server.ProtocolError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return "hangup"
	case errors.As(err, &pe):
		return "protocol_error"
	default:
		return "error"
	}
}

// errorCode names the core error codes; unknown codes pass through
// numerically. Applications define their own codes per interface, so
// cardinality stays bounded by the protocol surface.
func errorCode(code uint32) string {
	switch code {
	case server.CodeInvalidObject:
		return "invalid_object"
	case server.CodeInvalidMethod:
		return "invalid_method"
	case server.CodeNoMemory:
		return "no_memory"
	case server.CodeImplementation:
		return "implementation"
	default:
		return strconv.FormatUint(uint64(code), 10)
	}
}
