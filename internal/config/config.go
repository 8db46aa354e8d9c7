package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fnr1r/wayland-go/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "waylandd.json"

	// DefaultFlushInterval is how often buffered events are pushed to
	// clients when the daemon drives flushing itself.
	DefaultFlushInterval = "4ms"

	// DefaultInspectAddr is the default bind address of the diagnostic
	// HTTP surface.
	DefaultInspectAddr = "localhost:9222"

	// DefaultLogLevel is the default slog level name.
	DefaultLogLevel = "info"

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "wayland"
)

// Config represents the complete waylandd.json configuration.
type Config struct {
	// SocketName is the listening socket name under XDG_RUNTIME_DIR.
	// Empty means probe for the first free wayland-N name.
	SocketName string `json:"socket,omitempty"`

	// FlushInterval is the event flush cadence, as a Go duration.
	FlushInterval string `json:"flushInterval,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Inspect contains the diagnostic HTTP surface configuration.
	Inspect InspectConfig `json:"inspect,omitempty"`

	// Telemetry contains metrics and tracing configuration.
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// InspectConfig contains the diagnostic surface settings.
type InspectConfig struct {
	// Enabled turns the HTTP surface on.
	Enabled bool `json:"enabled,omitempty"`

	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	// Metrics enables Prometheus instruments (served on the inspect
	// surface under /metrics).
	Metrics bool `json:"metrics,omitempty"`

	// Namespace is the Prometheus metrics namespace.
	Namespace string `json:"namespace,omitempty"`

	// Tracing enables OpenTelemetry spans per dispatched request.
	Tracing bool `json:"tracing,omitempty"`
}

// New returns a Config with defaults applied.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory. It looks for
// waylandd.json in the directory; a missing file yields defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. A missing
// file is not an error; defaults are returned.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E102").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E102").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.FlushInterval == "" {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Inspect.Addr == "" {
		c.Inspect.Addr = DefaultInspectAddr
	}
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = DefaultMetricsNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.FlushInterval); err != nil {
		return errors.New("E104").
			WithDetail("flushInterval " + c.FlushInterval + " does not parse")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E103").
			WithDetail("log.level must be debug, info, warn or error, not " + c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E103").
			WithDetail("log.format must be text or json, not " + c.Log.Format)
	}
	return nil
}

// FlushIntervalDuration returns the parsed flush cadence. Validate
// guarantees it parses; a zero value only appears for configs built by
// hand.
func (c *Config) FlushIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil {
		return 4 * time.Millisecond
	}
	return d
}
