package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Inventory InventoryConfig
	Report    ReportConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Storage drivers
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// StorageConfig selects where the four collections are kept
type StorageConfig struct {
	Driver string // file, sqlite, postgres, s3
	Dir    string // directory for the file driver
	Format string // json, yaml
	DSN    string // sqlite path or postgres DSN
	S3     S3Config

	// SlowThreshold flags snapshot statements of the database drivers that
	// run longer than this. 0 disables the warning.
	SlowThreshold time.Duration
}

// S3Config holds S3-compatible object storage settings
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// AuthConfig holds credential settings
type AuthConfig struct {
	BcryptCost int
}

// InventoryConfig holds inventory settings
type InventoryConfig struct {
	LowStockThreshold int
}

// ReportConfig holds reporting settings
type ReportConfig struct {
	Timezone string // IANA name, "Local" or "UTC"
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Trace SQL of the database backend (otelgorm)
	ExportInterval    time.Duration
}

// ProfilingConfig holds continuous profiling configuration
type ProfilingConfig struct {
	Enabled       bool
	ServerAddress string
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with POS_ prefix (e.g., POS_STORAGE_DRIVER)
// 2. config.toml in the working directory
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply
	}

	v.SetDefault("storage.slow_threshold", 200*time.Millisecond)
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			Dir:           v.GetString("storage.dir"),
			Format:        v.GetString("storage.format"),
			DSN:           v.GetString("storage.dsn"),
			SlowThreshold: v.GetDuration("storage.slow_threshold"),
			S3: S3Config{
				Endpoint:     v.GetString("storage.s3.endpoint"),
				Region:       v.GetString("storage.s3.region"),
				Bucket:       v.GetString("storage.s3.bucket"),
				Prefix:       v.GetString("storage.s3.prefix"),
				AccessKey:    v.GetString("storage.s3.access_key"),
				SecretKey:    v.GetString("storage.s3.secret_key"),
				UseSSL:       v.GetBool("storage.s3.use_ssl"),
				UsePathStyle: v.GetBool("storage.s3.use_path_style"),
			},
		},
		Auth: AuthConfig{
			BcryptCost: v.GetInt("auth.bcrypt_cost"),
		},
		Inventory: InventoryConfig{
			LowStockThreshold: v.GetInt("inventory.low_stock_threshold"),
		},
		Report: ReportConfig{
			Timezone: v.GetString("report.timezone"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
		Profiling: ProfilingConfig{
			Enabled:       v.GetBool("profiling.enabled"),
			ServerAddress: v.GetString("profiling.server_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pos"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	// stdout carries command output
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverFile
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data"
	}
	if cfg.Storage.Format == "" {
		cfg.Storage.Format = "json"
	}
	if cfg.Storage.Driver == DriverSQLite && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "pos.db"
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Inventory.LowStockThreshold == 0 {
		cfg.Inventory.LowStockThreshold = 5
	}
	if cfg.Report.Timezone == "" {
		cfg.Report.Timezone = "Local"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Profiling.ServerAddress == "" {
		cfg.Profiling.ServerAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	case DriverS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of file, sqlite, postgres, s3, got %q", c.Storage.Driver)
	}

	if c.Storage.Format != "json" && c.Storage.Format != "yaml" {
		return fmt.Errorf("storage.format must be json or yaml, got %q", c.Storage.Format)
	}

	// bcrypt accepts costs 4..31
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}

	if c.Inventory.LowStockThreshold < 0 {
		return fmt.Errorf("inventory.low_stock_threshold cannot be negative")
	}

	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone %q is not a valid location: %w", c.Report.Timezone, err)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Location returns the configured report location
func (r ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
