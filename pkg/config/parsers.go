package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const envPrefix = "ECHOBIN_"

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr       string
	Config     string
	Engine     string
	MaxBody    string
	LogLevel   string
	TrustProxy bool
	Set        map[string]bool
}

// EffectiveConfigResult holds the result of LoadEffectiveConfig.
type EffectiveConfigResult struct {
	Config  *Config
	Addr    string
	Path    string   // config file consulted
	Sources []string // "defaults", "config", "env", "flags" in application order
}

// Source is a compact description of the layers that contributed.
func (r EffectiveConfigResult) Source() string {
	return strings.Join(r.Sources, "+")
}

// LoadEffectiveConfig layers defaults, the config file, environment
// variables and explicit flags, in that order. A missing config file is only
// an error when --config was given explicitly.
func LoadEffectiveConfig(flags Flags) (EffectiveConfigResult, error) {
	res := EffectiveConfigResult{Config: Default(), Sources: []string{"defaults"}}

	res.Path = ResolveConfigPath(flags.Config, flags.Set["config"])
	if err := Load(res.Path, res.Config); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return res, err
		}
		if flags.Set["config"] {
			return res, fmt.Errorf("config file %s not found", res.Path)
		}
	} else {
		res.Sources = append(res.Sources, "config")
	}

	envUsed, err := ParseConfigEnvs(res.Config)
	if err != nil {
		return res, err
	}
	if envUsed {
		res.Sources = append(res.Sources, "env")
	}

	flagsUsed, err := ApplyFlags(res.Config, flags)
	if err != nil {
		return res, err
	}
	if flagsUsed {
		res.Sources = append(res.Sources, "flags")
	}

	res.Addr = res.Config.Addr()
	return res, nil
}

// ParseConfigEnvs loads .env when present and applies ECHOBIN_* variables to
// cfg. It reports whether any variable was set.
func ParseConfigEnvs(cfg *Config) (bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return false, fmt.Errorf("parse env: %w", err)
	}

	// host:port shorthand
	if v := os.Getenv(envPrefix + "ADDR"); v != "" {
		if err := setAddr(cfg, v); err != nil {
			return false, fmt.Errorf("%sADDR: %w", envPrefix, err)
		}
	}

	envUsed := false
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		switch name {
		case envPrefix + "CONFIG", envPrefix + "LOG_SINK":
			continue
		}
		if strings.HasPrefix(name, envPrefix) {
			envUsed = true
			break
		}
	}
	return envUsed, nil
}

// ApplyFlags copies explicitly set flags onto cfg.
func ApplyFlags(cfg *Config, flags Flags) (bool, error) {
	used := false
	if flags.Set["addr"] {
		used = true
		if err := setAddr(cfg, flags.Addr); err != nil {
			return used, fmt.Errorf("--addr: %w", err)
		}
	}
	if flags.Set["engine"] {
		used = true
		cfg.Server.Engine = flags.Engine
	}
	if flags.Set["max-body"] {
		used = true
		n, err := humanize.ParseBytes(flags.MaxBody)
		if err != nil {
			return used, fmt.Errorf("--max-body: %w", err)
		}
		cfg.Inspect.MaxBodyBytes = SizeBytes(n)
	}
	if flags.Set["trust-proxy"] {
		used = true
		cfg.Inspect.TrustProxyHeaders = flags.TrustProxy
	}
	if flags.Set["log-level"] {
		used = true
		cfg.Logging.Level = flags.LogLevel
	}
	return used, nil
}

// setAddr accepts "host:port", ":port" or a bare host.
func setAddr(cfg *Config, addr string) error {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		cfg.Server.Address = addr
		return nil
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return fmt.Errorf("invalid port %q", p)
	}
	if h != "" {
		cfg.Server.Address = h
	}
	cfg.Server.Port = port
	return nil
}
