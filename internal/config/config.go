// Package config resolves genomecore settings from an optional YAML file and
// GENOMECORE_* environment variables. Environment values win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables:
//
//	GENOMECORE_CONFIG: YAML file read before the environment (optional)
//	GENOMECORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	GENOMECORE_SQLITE_PATH: sqlite file (default ./genomecore.db)
//	GENOMECORE_POSTGRES_DSN: DSN when driver=postgres
//	GENOMECORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	GENOMECORE_BLOB_FS_ROOT: directory when blob driver=fs (default ./blobdata)
//	GENOMECORE_BLOB_S3_BUCKET, _REGION, _ENDPOINT, _PATH_STYLE: s3 settings
//	GENOMECORE_LOG_LEVEL: debug|info|warn|error (default info)
//	GENOMECORE_METRICS: none|expvar|prometheus (default none)
//	GENOMECORE_TRACE: none|json (default none)
const (
	EnvConfigFile     = "GENOMECORE_CONFIG"
	EnvStorageDriver  = "GENOMECORE_STORAGE_DRIVER"
	EnvSQLitePath     = "GENOMECORE_SQLITE_PATH"
	EnvPostgresDSN    = "GENOMECORE_POSTGRES_DSN"
	EnvBlobDriver     = "GENOMECORE_BLOB_DRIVER"
	EnvBlobFSRoot     = "GENOMECORE_BLOB_FS_ROOT"
	EnvBlobS3Bucket   = "GENOMECORE_BLOB_S3_BUCKET"
	EnvBlobS3Region   = "GENOMECORE_BLOB_S3_REGION"
	EnvBlobS3Endpoint = "GENOMECORE_BLOB_S3_ENDPOINT"
	EnvBlobS3Path     = "GENOMECORE_BLOB_S3_PATH_STYLE"
	EnvLogLevel       = "GENOMECORE_LOG_LEVEL"
	EnvMetrics        = "GENOMECORE_METRICS"
	EnvTrace          = "GENOMECORE_TRACE"
)

// Storage selects the model store.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// S3 configures the s3 blob driver.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Blob selects the export artifact store.
type Blob struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// Metrics sinks.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Trace sinks.
const (
	TraceNone = "none"
	TraceJSON = "json"
)

// Config is the resolved configuration.
type Config struct {
	Storage  Storage `yaml:"storage"`
	Blob     Blob    `yaml:"blob"`
	LogLevel string  `yaml:"log_level"`
	Metrics  string  `yaml:"metrics"`
	Trace    string  `yaml:"trace"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Storage:  Storage{Driver: "sqlite", SQLitePath: "./genomecore.db"},
		Blob:     Blob{Driver: "fs", FSRoot: "./blobdata", S3: S3{Region: "us-east-1"}},
		LogLevel: "info",
		Metrics:  MetricsNone,
		Trace:    TraceNone,
	}
}

// Load reads the file named by GENOMECORE_CONFIG, if set, over the defaults
// and then applies the environment.
func Load() (Config, error) {
	return LoadEnv(os.Getenv)
}

// LoadEnv is Load with getenv in place of os.Getenv.
func LoadEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv(EnvConfigFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Storage.Driver, EnvStorageDriver)
	set(&cfg.Storage.SQLitePath, EnvSQLitePath)
	set(&cfg.Storage.PostgresDSN, EnvPostgresDSN)
	set(&cfg.Blob.Driver, EnvBlobDriver)
	set(&cfg.Blob.FSRoot, EnvBlobFSRoot)
	set(&cfg.Blob.S3.Bucket, EnvBlobS3Bucket)
	set(&cfg.Blob.S3.Region, EnvBlobS3Region)
	set(&cfg.Blob.S3.Endpoint, EnvBlobS3Endpoint)
	set(&cfg.LogLevel, EnvLogLevel)
	set(&cfg.Metrics, EnvMetrics)
	set(&cfg.Trace, EnvTrace)
	if v := getenv(EnvBlobS3Path); v != "" {
		cfg.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names and the settings each driver needs.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage driver postgres requires %s", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob driver s3 requires %s", EnvBlobS3Bucket)
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Metrics {
	case "", MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		return fmt.Errorf("unknown metrics sink %q", c.Metrics)
	}
	switch c.Trace {
	case "", TraceNone, TraceJSON:
	default:
		return fmt.Errorf("unknown trace sink %q", c.Trace)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
