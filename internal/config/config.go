package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Staging  StagingConfig  `yaml:"staging" mapstructure:"staging"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres connection pool.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PipelineConfig configures the staging-to-operational transformation.
type PipelineConfig struct {
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	Validator string `yaml:"validator" mapstructure:"validator"`
	// HectaresTolerance is the benefited/total ratio above which the
	// flexible validator rejects a row.
	HectaresTolerance float64 `yaml:"hectares_tolerance" mapstructure:"hectares_tolerance"`
	// AmountTolerance is the relative amount mismatch the flexible
	// validator logs as advisory.
	AmountTolerance float64 `yaml:"amount_tolerance" mapstructure:"amount_tolerance"`
	CatalogPath     string  `yaml:"catalog_path" mapstructure:"catalog_path"`
	MaxParallel     int     `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// StagingConfig configures spreadsheet extraction into staging tables.
type StagingConfig struct {
	BatchSize  int  `yaml:"batch_size" mapstructure:"batch_size"`
	Truncate   bool `yaml:"truncate" mapstructure:"truncate"`
	RowsPerSec int  `yaml:"rows_per_sec" mapstructure:"rows_per_sec"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SUBSIDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pipeline.batch_size", 1000)
	v.SetDefault("pipeline.validator", "flexible")
	v.SetDefault("pipeline.hectares_tolerance", 1.5)
	v.SetDefault("pipeline.amount_tolerance", 0.10)
	v.SetDefault("pipeline.catalog_path", "")
	v.SetDefault("pipeline.max_parallel", 2)
	v.SetDefault("staging.batch_size", 1000)
	v.SetDefault("staging.truncate", false)
	v.SetDefault("staging.rows_per_sec", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command needs. Mode is one of
// "stage", "process", "serve", "migrate" or "query".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "stage":
		if c.Staging.BatchSize <= 0 {
			errs = append(errs, "staging.batch_size must be > 0")
		}
		if c.Staging.RowsPerSec < 0 {
			errs = append(errs, "staging.rows_per_sec must be >= 0")
		}
	case "process":
		if c.Pipeline.BatchSize <= 0 {
			errs = append(errs, "pipeline.batch_size must be > 0")
		}
		switch c.Pipeline.Validator {
		case "strict", "flexible":
		default:
			errs = append(errs, fmt.Sprintf("pipeline.validator %q must be strict or flexible", c.Pipeline.Validator))
		}
		if c.Pipeline.HectaresTolerance < 1 {
			errs = append(errs, "pipeline.hectares_tolerance must be >= 1")
		}
		if c.Pipeline.AmountTolerance < 0 || c.Pipeline.AmountTolerance > 1 {
			errs = append(errs, "pipeline.amount_tolerance must be between 0 and 1")
		}
		if c.Pipeline.MaxParallel < 1 || c.Pipeline.MaxParallel > 8 {
			errs = append(errs, "pipeline.max_parallel must be between 1 and 8")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "migrate", "query":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
