// Package config holds the settings of the simple-rpc command, loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"simple-rpc/codec"
	"simple-rpc/loadbalance"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Config is the root of a config file.
type Config struct {
	Listen      string        `yaml:"listen"`
	Advertise   string        `yaml:"advertise"` // address published in the registry, defaults to Listen
	Codec       string        `yaml:"codec"`     // proto | json
	Compression string        `yaml:"compression"`
	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level"`
	RateLimit   RateLimit     `yaml:"rate_limit"`
	Registry    Registry      `yaml:"registry"`
	Telemetry   Telemetry     `yaml:"telemetry"`
}

// RateLimit configures the server's token bucket. Rate 0 disables it.
type RateLimit struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Registry configures etcd discovery. No endpoints means calls go straight to an address.
type Registry struct {
	Endpoints   []string      `yaml:"endpoints"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	TTL         int64         `yaml:"ttl"` // lease seconds
	Balancer    string        `yaml:"balancer"`
}

// Telemetry toggles OpenTelemetry instrumentation of the served services.
type Telemetry struct {
	Tracing bool `yaml:"tracing"`
	Metrics bool `yaml:"metrics"`
}

// Default returns the settings used when no config file is given.
func Default() Config {
	return Config{
		Listen:      "127.0.0.1:9000",
		Codec:       "proto",
		Compression: "none",
		Timeout:     5 * time.Second,
		LogLevel:    "info",
		Registry: Registry{
			DialTimeout: 5 * time.Second,
			TTL:         10,
			Balancer:    "roundrobin",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen: must not be empty"))
	}
	if _, err := codec.ParseCodecType(c.Codec); err != nil {
		errs = append(errs, fmt.Errorf("codec: %w", err))
	}
	switch strings.ToLower(c.Compression) {
	case "", "none", "zstd":
	default:
		errs = append(errs, fmt.Errorf("compression: unknown value %q", c.Compression))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout: must not be negative"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.RateLimit.Rate < 0 || (c.RateLimit.Rate > 0 && c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("rate_limit: rate must be >= 0 and burst >= 1"))
	}
	if len(c.Registry.Endpoints) > 0 {
		if c.Registry.TTL < 1 {
			errs = append(errs, errors.New("registry.ttl: must be at least 1"))
		}
		if _, err := loadbalance.New(c.Registry.Balancer); err != nil {
			errs = append(errs, fmt.Errorf("registry.balancer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CodecType returns the parsed payload codec. Call after Validate.
func (c *Config) CodecType() codec.CodecType {
	t, _ := codec.ParseCodecType(c.Codec)
	return t
}

// Compressed reports whether frame bodies are zstd compressed.
func (c *Config) Compressed() bool {
	return strings.EqualFold(c.Compression, "zstd")
}

// AdvertiseAddr is the address published in the registry.
func (c *Config) AdvertiseAddr() string {
	if c.Advertise != "" {
		return c.Advertise
	}
	return c.Listen
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() log.Level {
	l, _ := log.ParseLevel(c.LogLevel)
	return l
}
