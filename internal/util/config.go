package util

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration. Values come from, in
// order of precedence: command-line flags, MCAT_* environment variables,
// the YAML config file, then defaults.
type Config struct {
	DB          string `mapstructure:"db"`
	Verbose     bool   `mapstructure:"verbose"`
	Quiet       bool   `mapstructure:"quiet"`
	LogFormat   string `mapstructure:"log_format"`
	NetworkDB   bool   `mapstructure:"network_db"`
	AuditDir    string `mapstructure:"audit_dir"`
	NoAudit     bool   `mapstructure:"no_audit"`
	Concurrency int    `mapstructure:"concurrency"`
}

// SetConfigDefaults registers default values on v
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("db", "mcat.db")
	v.SetDefault("log_format", FormatAuto)
	v.SetDefault("audit_dir", "artifacts")
	v.SetDefault("concurrency", runtime.NumCPU())
}

// LoadConfig unmarshals and validates the configuration held by v
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("%w: db path is empty", ErrInvalidConfig)
	}
	if c.Verbose && c.Quiet {
		return fmt.Errorf("%w: verbose and quiet are mutually exclusive", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "", FormatAuto, FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	return nil
}

// ApplyLogging configures the global logger from the config
func (c *Config) ApplyLogging() error {
	if err := SetLogFormat(c.LogFormat); err != nil {
		return err
	}
	SetVerbose(c.Verbose)
	SetQuiet(c.Quiet)
	return nil
}

// RetryConfig returns the retry policy matching the database location
func (c *Config) RetryConfig() *RetryConfig {
	if c.NetworkDB {
		return NetworkRetryConfig()
	}
	return DefaultRetryConfig()
}
