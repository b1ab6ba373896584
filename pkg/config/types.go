package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct. yaml tags drive the config file,
// env tags the ECHOBIN_ environment overrides.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Inspect   InspectConfig   `yaml:"inspect" envPrefix:"INSPECT_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Docs      DocsConfig      `yaml:"docs" envPrefix:"DOCS_"`
}

// ServerConfig holds listener and timeout settings.
type ServerConfig struct {
	Address         string   `yaml:"address" env:"ADDRESS"`
	Port            int      `yaml:"port" env:"PORT"`
	Engine          string   `yaml:"engine" env:"ENGINE"` // nethttp | fasthttp
	ReadTimeout     Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// InspectConfig controls request inspection.
type InspectConfig struct {
	MaxBodyBytes      SizeBytes `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	TrustProxyHeaders bool      `yaml:"trust_proxy_headers" env:"TRUST_PROXY_HEADERS"`
}

// AuthConfig holds the authentication challenge settings.
type AuthConfig struct {
	Realm string `yaml:"realm" env:"REALM"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // text | json
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

type TelemetryConfig struct {
	SampleRate    float64  `yaml:"sample_rate" env:"SAMPLE_RATE"`
	SlowThreshold Duration `yaml:"slow_threshold" env:"SLOW_THRESHOLD"`
}

type DocsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "10MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	return s.UnmarshalText([]byte(node.Value))
}

// UnmarshalText lets environment variables use the same syntax as YAML.
func (s *SizeBytes) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", raw)
}

func (s SizeBytes) MarshalYAML() (interface{}, error) {
	return humanize.Bytes(uint64(s)), nil
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string { return humanize.Bytes(uint64(s)) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", raw)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
