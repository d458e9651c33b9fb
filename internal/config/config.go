// Package config loads configuration from a gvfs.yaml file, a .env file and
// GVFS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides
// (e.g. GVFS_HEALTH_TOP_DIRECTORIES).
const EnvPrefix = "GVFS"

// Config holds all health tool configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Baseline BaselineConfig `mapstructure:"baseline"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Health   HealthConfig   `mapstructure:"health"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// BaselineConfig selects where the HEAD commit tree is read from.
type BaselineConfig struct {
	Source        string `mapstructure:"source"` // "git" or "manifest"
	Commit        string `mapstructure:"commit"`
	TreeCacheSize int    `mapstructure:"tree_cache_size"`
	Workers       int    `mapstructure:"workers"`
}

// ManifestConfig locates published baseline manifests.
type ManifestConfig struct {
	Backend   string   `mapstructure:"backend"` // "local" or "s3"
	Prefix    string   `mapstructure:"prefix"`
	LocalPath string   `mapstructure:"local_path"`
	S3        S3Config `mapstructure:"s3"`
}

// S3Config holds S3 connection settings.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LedgerConfig selects the hydration ledger source.
type LedgerConfig struct {
	Source       string `mapstructure:"source"` // "local" or "postgres"
	DatabaseURL  string `mapstructure:"database_url"`
	EnlistmentID string `mapstructure:"enlistment_id"`
}

// HealthConfig tunes the report.
type HealthConfig struct {
	TopDirectories  int               `mapstructure:"top_directories"`
	PercentRounding string            `mapstructure:"percent_rounding"` // "floor" or "nearest"
	Thresholds      []ThresholdConfig `mapstructure:"thresholds"`
}

// ThresholdConfig is one row of the status table.
type ThresholdConfig struct {
	Min   int    `mapstructure:"min"`
	Label string `mapstructure:"label"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("baseline.source", "git")
	v.SetDefault("baseline.commit", "HEAD")
	v.SetDefault("baseline.tree_cache_size", 4096)
	v.SetDefault("baseline.workers", 8)

	v.SetDefault("manifest.backend", "local")
	v.SetDefault("manifest.prefix", "manifests")
	v.SetDefault("manifest.local_path", "")
	v.SetDefault("manifest.s3.endpoint", "http://localhost:9000")
	v.SetDefault("manifest.s3.bucket", "gvfs-manifests")
	v.SetDefault("manifest.s3.access_key", "")
	v.SetDefault("manifest.s3.secret_key", "")
	v.SetDefault("manifest.s3.region", "us-east-1")
	v.SetDefault("manifest.s3.use_ssl", false)

	v.SetDefault("ledger.source", "local")
	v.SetDefault("ledger.database_url", "")
	v.SetDefault("ledger.enlistment_id", "")

	v.SetDefault("health.top_directories", 5)
	v.SetDefault("health.percent_rounding", "floor")
	v.SetDefault("health.thresholds", []map[string]any{
		{"min": 0, "label": "OK"},
		{"min": 50, "label": "Highly Hydrated"},
	})

	v.SetDefault("metrics.textfile", "")
}

// Load reads configuration. searchDirs are probed in order for gvfs.yaml; a
// missing file is not an error.
func Load(searchDirs ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("gvfs")
	v.SetConfigType("yaml")
	for _, dir := range searchDirs {
		if dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(searchDirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and incomplete source settings.
func (c *Config) Validate() error {
	switch c.Baseline.Source {
	case "git", "manifest":
	default:
		return fmt.Errorf("baseline.source must be git or manifest, got %q", c.Baseline.Source)
	}
	if c.Baseline.Source == "manifest" {
		switch c.Manifest.Backend {
		case "local":
			if c.Manifest.LocalPath == "" {
				return fmt.Errorf("manifest.local_path is required for the local manifest backend")
			}
		case "s3":
			if c.Manifest.S3.Bucket == "" {
				return fmt.Errorf("manifest.s3.bucket is required for the s3 manifest backend")
			}
		default:
			return fmt.Errorf("manifest.backend must be local or s3, got %q", c.Manifest.Backend)
		}
	}

	switch c.Ledger.Source {
	case "local":
	case "postgres":
		if c.Ledger.DatabaseURL == "" {
			return fmt.Errorf("ledger.database_url is required for the postgres ledger")
		}
		if c.Ledger.EnlistmentID == "" {
			return fmt.Errorf("ledger.enlistment_id is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("ledger.source must be local or postgres, got %q", c.Ledger.Source)
	}

	switch c.Health.PercentRounding {
	case "floor", "nearest":
	default:
		return fmt.Errorf("health.percent_rounding must be floor or nearest, got %q", c.Health.PercentRounding)
	}
	if c.Health.TopDirectories < 0 {
		return fmt.Errorf("health.top_directories must not be negative")
	}
	if c.Baseline.TreeCacheSize <= 0 {
		return fmt.Errorf("baseline.tree_cache_size must be positive")
	}
	if c.Baseline.Workers <= 0 {
		return fmt.Errorf("baseline.workers must be positive")
	}
	return nil
}
