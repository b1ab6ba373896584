package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the effective configuration and returns every problem
// found joined into one error.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Server.Engine {
	case "nethttp", "fasthttp":
	default:
		errs = append(errs, fmt.Errorf("server.engine: unknown engine %q (want nethttp or fasthttp)", cfg.Server.Engine))
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", cfg.Server.Port))
	}
	for name, d := range map[string]Duration{
		"server.read_timeout":     cfg.Server.ReadTimeout,
		"server.write_timeout":    cfg.Server.WriteTimeout,
		"server.idle_timeout":     cfg.Server.IdleTimeout,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", name))
		}
	}
	if cfg.Inspect.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("inspect.max_body_bytes: must be positive"))
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", cfg.Logging.Format))
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path: %q must start with /", cfg.Metrics.Path))
	}
	if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate: %v not in [0,1]", cfg.Telemetry.SampleRate))
	}
	return errors.Join(errs...)
}
