package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration every other source layers on.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "0.0.0.0",
			Port:            8080,
			Engine:          "nethttp",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			IdleTimeout:     Duration(30 * time.Second),
			ShutdownTimeout: Duration(20 * time.Second),
		},
		Inspect: InspectConfig{
			MaxBodyBytes: 10 * 1000 * 1000,
		},
		Auth: AuthConfig{
			Realm: "Fake Realm",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Telemetry: TelemetryConfig{
			SampleRate:    0.001,
			SlowThreshold: Duration(200 * time.Millisecond),
		},
		Docs: DocsConfig{
			Enabled: true,
		},
	}
}

// Addr returns host:port for HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Load decodes the YAML file at path on top of cfg. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Load(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// ResolveConfigPath decides the config file path using the flag-provided value
// and the environment variable `ECHOBIN_CONFIG` when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("ECHOBIN_CONFIG"); p != "" {
		return p
	}
	if flagPath == "" {
		return "./config.yaml"
	}
	return flagPath
}
