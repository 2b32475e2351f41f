// Package config loads feedcore runtime settings from an optional YAML file
// and FEEDCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"feedcore/internal/blob"
	"feedcore/internal/infra/blob/s3"
)

// Catalog drivers.
const (
	CatalogBlob     = "blob"
	CatalogSQLite   = "sqlite"
	CatalogPostgres = "postgres"
)

// Metrics drivers.
const (
	MetricsNone       = "none"
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// Config is the full runtime configuration.
type Config struct {
	Blob    Blob    `yaml:"blob"`
	Catalog Catalog `yaml:"catalog"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Blob selects the reference document store.
type Blob struct {
	Driver string    `yaml:"driver"`
	FSRoot string    `yaml:"fs_root"`
	S3     s3.Config `yaml:"s3"`
}

// Catalog selects where ingredient catalogs come from. The blob driver reads
// the reference documents directly; sqlite and postgres serve imported
// snapshots.
type Catalog struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `yaml:"level"`
}

// Metrics selects the metrics recorder.
type Metrics struct {
	Driver string `yaml:"driver"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Blob:    Blob{Driver: string(blob.DriverFilesystem), FSRoot: "data"},
		Catalog: Catalog{Driver: CatalogBlob, SQLitePath: "feedcore.db"},
		Log:     Log{Level: "info"},
		Metrics: Metrics{Driver: MetricsNone},
	}
}

// Load reads path (skipped when empty) over the defaults and then applies
// environment overrides.
//
//	FEEDCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	FEEDCORE_BLOB_FS_ROOT: reference data directory (default ./data)
//	FEEDCORE_BLOB_S3_{BUCKET,REGION,PREFIX,ENDPOINT,PATH_STYLE}
//	FEEDCORE_BLOB_S3_{ACCESS_KEY_ID,SECRET_ACCESS_KEY,SESSION_TOKEN}
//	FEEDCORE_CATALOG_DRIVER: blob|sqlite|postgres (default blob)
//	FEEDCORE_SQLITE_PATH, FEEDCORE_POSTGRES_DSN
//	FEEDCORE_LOG_LEVEL, FEEDCORE_METRICS_DRIVER
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("FEEDCORE_BLOB_DRIVER", &cfg.Blob.Driver)
	str("FEEDCORE_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("FEEDCORE_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("FEEDCORE_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("FEEDCORE_BLOB_S3_PREFIX", &cfg.Blob.S3.Prefix)
	str("FEEDCORE_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("FEEDCORE_BLOB_S3_ACCESS_KEY_ID", &cfg.Blob.S3.AccessKeyID)
	str("FEEDCORE_BLOB_S3_SECRET_ACCESS_KEY", &cfg.Blob.S3.SecretAccessKey)
	str("FEEDCORE_BLOB_S3_SESSION_TOKEN", &cfg.Blob.S3.SessionToken)
	str("FEEDCORE_CATALOG_DRIVER", &cfg.Catalog.Driver)
	str("FEEDCORE_SQLITE_PATH", &cfg.Catalog.SQLitePath)
	str("FEEDCORE_POSTGRES_DSN", &cfg.Catalog.PostgresDSN)
	str("FEEDCORE_LOG_LEVEL", &cfg.Log.Level)
	str("FEEDCORE_METRICS_DRIVER", &cfg.Metrics.Driver)
	if v, ok := lookup("FEEDCORE_BLOB_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FEEDCORE_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Blob.S3.PathStyle = b
	}
	return nil
}

// Validate rejects unknown drivers.
func (c Config) Validate() error {
	var errs []error
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	switch c.Catalog.Driver {
	case CatalogBlob, CatalogSQLite, CatalogPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown catalog driver %q", c.Catalog.Driver))
	}
	switch c.Metrics.Driver {
	case MetricsNone, MetricsPrometheus, MetricsExpvar:
	default:
		errs = append(errs, fmt.Errorf("unknown metrics driver %q", c.Metrics.Driver))
	}
	return errors.Join(errs...)
}

// BlobConfig converts the blob section for blob.Open.
func (c Config) BlobConfig() blob.Config {
	return blob.Config{Driver: c.Blob.Driver, FSRoot: c.Blob.FSRoot, S3: c.Blob.S3}
}
