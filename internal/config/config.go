// Package config loads herdcore runtime configuration. Sources are applied in
// increasing precedence: built-in defaults, a YAML file, a .env file and
// finally HERDCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"herdcore/internal/archive"
	"herdcore/internal/core"
	"herdcore/internal/infra/logging"
)

// Config is the root configuration structure.
type Config struct {
	Storage  core.StorageConfig `yaml:"storage"`
	Archive  archive.Config     `yaml:"archive"`
	HTTP     HTTPConfig         `yaml:"http"`
	Log      logging.Config     `yaml:"log"`
	Maturity MaturityConfig     `yaml:"maturity"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MaturityConfig tunes the maturity sweep.
type MaturityConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage: core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: "herdcore.db"},
		Archive: archive.Config{Driver: string(archive.DriverFilesystem), Root: "./archive"},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Log:     logging.Config{Level: "info", Format: "json"},
		Maturity: MaturityConfig{
			Concurrency: core.DefaultMaturityConcurrency,
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file; an
// empty envFile tries ./.env and ignores it when absent.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadEnvFile loads variables from a .env file without overriding variables
// already present in the environment.
func loadEnvFile(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"HERDCORE_SQLITE_PATH", &cfg.Storage.SQLitePath},
		{"HERDCORE_POSTGRES_DSN", &cfg.Storage.PostgresDSN},
		{"HERDCORE_ARCHIVE_DRIVER", &cfg.Archive.Driver},
		{"HERDCORE_ARCHIVE_ROOT", &cfg.Archive.Root},
		{"HERDCORE_S3_BUCKET", &cfg.Archive.S3.Bucket},
		{"HERDCORE_S3_REGION", &cfg.Archive.S3.Region},
		{"HERDCORE_S3_ENDPOINT", &cfg.Archive.S3.Endpoint},
		{"HERDCORE_S3_ACCESS_KEY_ID", &cfg.Archive.S3.AccessKeyID},
		{"HERDCORE_S3_SECRET_ACCESS_KEY", &cfg.Archive.S3.SecretAccessKey},
		{"HERDCORE_S3_SESSION_TOKEN", &cfg.Archive.S3.SessionToken},
		{"HERDCORE_HTTP_ADDR", &cfg.HTTP.Addr},
		{"HERDCORE_LOG_LEVEL", &cfg.Log.Level},
		{"HERDCORE_LOG_FORMAT", &cfg.Log.Format},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.dst = v
		}
	}
	if v := getenv("HERDCORE_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = core.StorageDriver(v)
	}
	if v := getenv("HERDCORE_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HERDCORE_S3_PATH_STYLE: %w", err)
		}
		cfg.Archive.S3.PathStyle = b
	}
	if v := getenv("HERDCORE_MATURITY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HERDCORE_MATURITY_CONCURRENCY: %w", err)
		}
		cfg.Maturity.Concurrency = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage: postgres driver requires postgres_dsn")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	switch archive.Driver(c.Archive.Driver) {
	case archive.DriverFilesystem, archive.DriverMemory:
	case archive.DriverS3:
		if c.Archive.S3.Bucket == "" {
			return errors.New("archive: s3 driver requires a bucket")
		}
	default:
		return fmt.Errorf("archive: unknown driver %q", c.Archive.Driver)
	}
	if c.Maturity.Concurrency < 1 {
		return fmt.Errorf("maturity: concurrency must be positive, got %d", c.Maturity.Concurrency)
	}
	if c.HTTP.Addr == "" {
		return errors.New("http: addr is required")
	}
	return nil
}
