package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all blindseeker configuration.
type Config struct {
	// Target application
	Target TargetConfig `yaml:"target"`

	// Truth oracle selection and policy
	Oracle OracleConfig `yaml:"oracle"`

	// Extraction engine
	Extraction ExtractionConfig `yaml:"extraction"`

	// HTTP transport
	Transport TransportConfig `yaml:"transport"`

	// Run history
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Report output
	Output OutputConfig `yaml:"output"`
}

// DefaultConfig returns the defaults of the reference tool.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Param: "id",
			FixedParams: map[string]string{
				"Submit": "Submit",
			},
		},

		Oracle: OracleConfig{
			Kind:    "boolean",
			Success: DefaultSuccessMarker,
			Match:   "body",
			Votes:   1,
		},

		Extraction: ExtractionConfig{
			Dialect:     "mysql",
			Expression:  "", // dialect default, database() on mysql
			MaxLength:   49,
			Concurrency: 20,
		},

		Transport: TransportConfig{
			Timeout:      "10s",
			UserAgent:    "Mozilla/5.0 (compatible; blindseeker/1.0)",
			MaxBodyBytes: 2 << 20,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},

		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BLINDSEEKER_URL"); v != "" {
		c.Target.URL = v
	}
	if v := os.Getenv("BLINDSEEKER_COOKIE"); v != "" {
		c.Target.Cookie = v
	}
	if v := os.Getenv("BLINDSEEKER_SUCCESS"); v != "" {
		c.Oracle.Success = v
	}
	if v := os.Getenv("BLINDSEEKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Extraction.Concurrency = n
		}
	}
	if v := os.Getenv("BLINDSEEKER_HISTORY"); v != "" {
		c.Store.Path = v
	}
}

// GetRequestTimeout returns the per-request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Transport.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Validate checks that the configuration can drive an extraction.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target.URL) == "" {
		return fmt.Errorf("%w: target url is required", ErrInvalidConfig)
	}
	if c.Target.Param == "" {
		return fmt.Errorf("%w: injection parameter is required", ErrInvalidConfig)
	}
	if c.Oracle.Success == "" {
		return fmt.Errorf("%w: success indicator must not be empty", ErrInvalidConfig)
	}
	if !contains(ValidMatchModes, c.Oracle.Match) {
		return fmt.Errorf("%w: invalid match mode %q (valid: %v)", ErrInvalidConfig, c.Oracle.Match, ValidMatchModes)
	}
	if c.Oracle.Votes < 1 || c.Oracle.Votes%2 == 0 {
		return fmt.Errorf("%w: votes must be a positive odd number, got %d", ErrInvalidConfig, c.Oracle.Votes)
	}
	if c.Extraction.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Extraction.Concurrency)
	}
	if c.Extraction.MaxLength < 1 {
		return fmt.Errorf("%w: max length must be at least 1, got %d", ErrInvalidConfig, c.Extraction.MaxLength)
	}
	if !contains(ValidDialects, c.Extraction.Dialect) {
		return fmt.Errorf("%w: invalid dialect %q (valid: %v)", ErrInvalidConfig, c.Extraction.Dialect, ValidDialects)
	}
	if c.Transport.RatePerSecond < 0 {
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidConfig)
	}
	if _, err := time.ParseDuration(c.Transport.Timeout); err != nil {
		return fmt.Errorf("%w: invalid timeout %q: %v", ErrInvalidConfig, c.Transport.Timeout, err)
	}
	if !contains(ValidOutputFormats, c.Output.Format) {
		return fmt.Errorf("%w: invalid output format %q (valid: %v)", ErrInvalidConfig, c.Output.Format, ValidOutputFormats)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
