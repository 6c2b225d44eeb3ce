// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package config loads server configuration from defaults, an optional
// YAML file, and command-line flags, in that order of precedence.
package config

import (
	"net"
	"net/url"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the serve command's configuration.
type Config struct {
	// ListenAddr is the API listen address.
	ListenAddr string `koanf:"listen_addr"`
	// MetricsAddr is the metrics/health HTTP address. Empty disables
	// the observability server.
	MetricsAddr string `koanf:"metrics_addr"`
	// BaseURL is the external URL projects derive their web and repo
	// URLs from.
	BaseURL string `koanf:"base_url"`
	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string `koanf:"log_format"`
	// Fixture is the path of the world fixture to load at startup.
	// Empty starts an empty world.
	Fixture string `koanf:"fixture"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		MetricsAddr: "127.0.0.1:9100",
		BaseURL:     "http://localhost:8080",
		LogFormat:   "json",
	}
}

// Load layers the optional YAML file at path and the given flags over
// the defaults. Flags use kebab-case names and map onto the snake_case
// config keys; a flag left at its default does not override a value
// from the file.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrapf(err, "load config file %s", path)
		}
	}
	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				Wrapf(err, "load flag overrides")
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_DECODE_FAILED").
			Wrapf(err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("listen_addr is required")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return oops.Code("CONFIG_INVALID").
			With("listen_addr", c.ListenAddr).
			Wrapf(err, "listen_addr %q is not host:port", c.ListenAddr)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return oops.Code("CONFIG_INVALID").
				With("metrics_addr", c.MetricsAddr).
				Wrapf(err, "metrics_addr %q is not host:port", c.MetricsAddr)
		}
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return oops.Code("CONFIG_INVALID").
			With("base_url", c.BaseURL).
			Errorf("base_url must be an absolute URL, got %q", c.BaseURL)
	}
	return nil
}
