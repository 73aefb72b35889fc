// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

// Package config loads service configuration from an optional YAML
// file layered under command-line flags.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default values.
const (
	DefaultHTTPAddr    = ":3000"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
	DefaultHasher      = "seeded"
)

// Config holds the service configuration.
type Config struct {
	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`
	Metrics struct {
		// Addr is the metrics/health listen address; empty disables the
		// observability server.
		Addr string `koanf:"addr"`
	} `koanf:"metrics"`
	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`
	Log struct {
		Format string `koanf:"format"`
		Level  string `koanf:"level"`
	} `koanf:"log"`
	Auth struct {
		// Hasher selects the credential hashing scheme: "seeded"
		// (deterministic, compatible with existing digests) or
		// "argon2id".
		Hasher string `koanf:"hasher"`
		// Seed overrides the digest seed for the seeded hasher.
		Seed string `koanf:"seed"`
	} `koanf:"auth"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (--database-url flag or config file)")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			With("level", c.Log.Level).
			Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// Load builds a Config from an optional YAML file and a flag set.
// Flag defaults form the base, file values override them, and flags the
// user actually set override the file. Flag names map to config keys by
// replacing dashes with dots (http-addr → http.addr).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "."), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "unmarshal config").
			Wrap(err)
	}
	return &cfg, nil
}

// Flags returns the flag set Load expects, with defaults applied.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("zhisid", pflag.ContinueOnError)
	f.String("http-addr", DefaultHTTPAddr, "API listen address")
	f.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	f.String("database-url", "", "PostgreSQL connection URL")
	f.String("log-format", DefaultLogFormat, "log format (json or text)")
	f.String("log-level", DefaultLogLevel, "minimum log level (debug, info, warn, error)")
	f.String("auth-hasher", DefaultHasher, "credential hasher (seeded or argon2id)")
	f.String("auth-seed", "", "digest seed override for the seeded hasher")
	return f
}
