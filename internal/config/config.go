package config

import (
	"strings"

	"github.com/spf13/viper"

	"breachtrend/domain/breach"
	"breachtrend/domain/trend"
	"breachtrend/internal/analysis/estimation"
	"breachtrend/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Trend    TrendConfig    `mapstructure:"trend"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TrendConfig holds estimation defaults
type TrendConfig struct {
	Quantiles     string  `mapstructure:"quantiles"`
	Iterations    int     `mapstructure:"iterations"`
	Seed          int64   `mapstructure:"seed"`
	ReferenceRule string  `mapstructure:"reference_rule"`
	Workers       int     `mapstructure:"workers"`
	MinSamples    int     `mapstructure:"min_samples"`
	Confidence    float64 `mapstructure:"confidence"`
}

// DatabaseConfig holds database connection settings. An empty URL disables report persistence.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	GinMode       string `mapstructure:"gin_mode"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb"`
	RunTimeoutSec int    `mapstructure:"run_timeout_sec"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix prefixes every environment override, e.g. BREACHTREND_TREND_ITERATIONS
const EnvPrefix = "BREACHTREND"

// Load reads configuration from an optional file plus environment variables and validates it
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The plain names are what the deployment scripts already export
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := estimation.DefaultOptions()

	v.SetDefault("trend.quantiles", "0.5,0.95")
	v.SetDefault("trend.iterations", def.Iterations)
	v.SetDefault("trend.seed", def.Seed)
	v.SetDefault("trend.reference_rule", def.Reference.String())
	v.SetDefault("trend.workers", 0)
	v.SetDefault("trend.min_samples", def.MinSamples)
	v.SetDefault("trend.confidence", def.Confidence)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.run_timeout_sec", 600)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if _, err := c.Trend.Options(); err != nil {
		return errors.ConfigInvalid("trend: " + err.Error())
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("server.port is required")
	}
	if c.Server.MaxUploadMB < 1 {
		return errors.ConfigInvalid("server.max_upload_mb must be at least 1")
	}
	validLevels := map[string]bool{"error": true, "warn": true, "info": true, "debug": true, "trace": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return errors.ConfigInvalid("logging.level must be one of: error, warn, info, debug, trace")
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return errors.ConfigInvalid("logging.format must be one of: json, console")
	}
	return nil
}

// Options converts the trend section into estimation options
func (t TrendConfig) Options() (estimation.Options, error) {
	qs, err := trend.ParseQuantiles(t.Quantiles)
	if err != nil {
		return estimation.Options{}, err
	}
	rule, err := breach.ParseReferenceRule(t.ReferenceRule)
	if err != nil {
		return estimation.Options{}, err
	}
	opts := estimation.Options{
		Quantiles:  qs,
		Iterations: t.Iterations,
		Seed:       t.Seed,
		Reference:  rule,
		Workers:    t.Workers,
		MinSamples: t.MinSamples,
		Confidence: t.Confidence,
	}
	return opts.Normalize()
}
