// Package config loads proxylog settings from a YAML file and PROXYLOG_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/proxylog/internal/accesslog"
	"github.com/telhawk-systems/proxylog/internal/analysis"
	"github.com/telhawk-systems/proxylog/internal/logging"
	"github.com/telhawk-systems/proxylog/internal/output"
	"github.com/telhawk-systems/proxylog/internal/seeder"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "PROXYLOG"

// Config is the full proxylog configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Analyze AnalyzeConfig `mapstructure:"analyze" yaml:"analyze"`
	Seed    SeedConfig    `mapstructure:"seed" yaml:"seed"`

	path string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AnalyzeConfig holds defaults for the analyze command.
type AnalyzeConfig struct {
	Format        string   `mapstructure:"format" yaml:"format"`
	TimestampUnit string   `mapstructure:"timestamp_unit" yaml:"timestamp_unit"`
	Metrics       []string `mapstructure:"metrics" yaml:"metrics"`
	MetricsFile   string   `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// SeedConfig holds defaults for the seed command.
type SeedConfig struct {
	Count          int           `mapstructure:"count" yaml:"count"`
	Clients        int           `mapstructure:"clients" yaml:"clients"`
	Spread         time.Duration `mapstructure:"spread" yaml:"spread"`
	MalformedRatio float64       `mapstructure:"malformed_ratio" yaml:"malformed_ratio"`
	ChunkedRatio   float64       `mapstructure:"chunked_ratio" yaml:"chunked_ratio"`
}

// MarshalYAML writes Spread as a duration string so the file stays readable.
func (s SeedConfig) MarshalYAML() (any, error) {
	return struct {
		Count          int     `yaml:"count"`
		Clients        int     `yaml:"clients"`
		Spread         string  `yaml:"spread"`
		MalformedRatio float64 `yaml:"malformed_ratio"`
		ChunkedRatio   float64 `yaml:"chunked_ratio"`
	}{s.Count, s.Clients, s.Spread.String(), s.MalformedRatio, s.ChunkedRatio}, nil
}

// Generator converts the seed section into generator settings.
func (s SeedConfig) Generator() seeder.Config {
	return seeder.Config{
		Count:          s.Count,
		Clients:        s.Clients,
		Spread:         s.Spread,
		MalformedRatio: s.MalformedRatio,
		ChunkedRatio:   s.ChunkedRatio,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	seed := seeder.DefaultConfig()
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Analyze: AnalyzeConfig{
			Format:        output.FormatJSON,
			TimestampUnit: string(accesslog.UnitSeconds),
			Metrics:       []string{},
		},
		Seed: SeedConfig{
			Count:          seed.Count,
			Clients:        seed.Clients,
			Spread:         seed.Spread,
			MalformedRatio: seed.MalformedRatio,
			ChunkedRatio:   seed.ChunkedRatio,
		},
	}
}

// DefaultPath returns $HOME/.proxylog/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".proxylog", "config.yaml"), nil
}

// Load reads configuration from cfgFile, falling back to the default path
// when cfgFile is empty. A missing file is not an error, so that Save can
// create it later.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = cfgFile

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("analyze.format", d.Analyze.Format)
	v.SetDefault("analyze.timestamp_unit", d.Analyze.TimestampUnit)
	v.SetDefault("analyze.metrics", d.Analyze.Metrics)
	v.SetDefault("analyze.metrics_file", d.Analyze.MetricsFile)

	v.SetDefault("seed.count", d.Seed.Count)
	v.SetDefault("seed.clients", d.Seed.Clients)
	v.SetDefault("seed.spread", d.Seed.Spread)
	v.SetDefault("seed.malformed_ratio", d.Seed.MalformedRatio)
	v.SetDefault("seed.chunked_ratio", d.Seed.ChunkedRatio)
}

// Path is the file the configuration was loaded from or will be saved to.
func (c *Config) Path() string {
	return c.path
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q: must be text or json", c.Logging.Format)
	}

	if !output.ValidFormat(c.Analyze.Format) {
		return fmt.Errorf("invalid analyze.format %q: must be one of %s",
			c.Analyze.Format, strings.Join(output.Formats, ", "))
	}
	if _, err := accesslog.ParseTimestampUnit(c.Analyze.TimestampUnit); err != nil {
		return fmt.Errorf("invalid analyze.timestamp_unit: %w", err)
	}
	if _, err := analysis.ParseSelection(c.Analyze.Metrics); err != nil {
		return fmt.Errorf("invalid analyze.metrics: %w", err)
	}

	if err := c.Seed.Generator().Validate(); err != nil {
		return fmt.Errorf("invalid seed config: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML to its path, creating the directory.
func (c *Config) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// SetPath overrides where Save writes.
func (c *Config) SetPath(path string) {
	c.path = path
}
