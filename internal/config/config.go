// Package config loads the sync client's configuration from flags,
// environment variables and a config file, in that order of precedence,
// using the same cobra+viper layering as the teacher's server config.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds all configuration for the sync client.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`

	// StorageBackend selects the local Storage Adapter: badger, pebble, or memory.
	StorageBackend string `mapstructure:"storage_backend"`

	// RemoteURL is the Kinto-protocol server base URL, e.g.
	// "https://example.com/v1". Empty means local-only, no Sync available.
	RemoteURL string `mapstructure:"remote_url"`
	Bucket    string `mapstructure:"bucket"`

	// DefaultStrategy is the conflict Strategy used by `syncctl sync` when
	// no --strategy flag overrides it: manual, server_wins, client_wins, pull_only.
	DefaultStrategy string `mapstructure:"default_strategy"`

	RequestTimeoutMS int `mapstructure:"request_timeout_ms"`
	MaxRetries       int `mapstructure:"max_retries"`

	JWTSecret  string `mapstructure:"jwt_secret"`
	JWTSubject string `mapstructure:"jwt_subject"`

	// MetricsPushgateway, when non-empty, is the base URL of a Prometheus
	// Pushgateway that `syncctl sync` pushes its metrics to after each run,
	// since a one-shot CLI process lives too briefly to be scraped.
	MetricsPushgateway string `mapstructure:"metrics_pushgateway"`
	MetricsJob         string `mapstructure:"metrics_job"`
}

// Load loads configuration from flags, a config file if specified, and
// environment variables (COLLECTIONSYNC_*). A flag set on the command
// line wins over the environment, which wins over the config file.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("COLLECTIONSYNC")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// No default for data_dir - must be explicitly configured.
	v.SetDefault("log_level", "info")
	v.SetDefault("storage_backend", "badger")
	v.SetDefault("bucket", "main")
	v.SetDefault("default_strategy", "manual")
	v.SetDefault("request_timeout_ms", 5000)
	v.SetDefault("max_retries", 3)
	v.SetDefault("metrics_job", "syncctl")
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"data-dir":            "data_dir",
		"log-level":           "log_level",
		"storage-backend":     "storage_backend",
		"remote-url":          "remote_url",
		"bucket":              "bucket",
		"strategy":            "default_strategy",
		"request-timeout":     "request_timeout_ms",
		"max-retries":         "max_retries",
		"metrics-pushgateway": "metrics_pushgateway",
		"metrics-job":         "metrics_job",
	}

	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	return nil
}

func validate(cfg *Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is required: specify via --data-dir flag, config file, or COLLECTIONSYNC_DATA_DIR environment variable")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	switch cfg.StorageBackend {
	case "badger", "pebble", "memory":
	default:
		return fmt.Errorf("unknown storage_backend %q: must be badger, pebble, or memory", cfg.StorageBackend)
	}

	switch cfg.DefaultStrategy {
	case "manual", "server_wins", "client_wins", "pull_only":
	default:
		return fmt.Errorf("unknown default_strategy %q", cfg.DefaultStrategy)
	}

	if cfg.RequestTimeoutMS <= 0 {
		cfg.RequestTimeoutMS = 5000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return nil
}
