package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "cdrcli/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Settings  SettingsConfig  `yaml:"settings" envconfig:"SETTINGS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Tables    TablesConfig    `yaml:"tables" envconfig:"TABLES"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" split_words:"true" validate:"oneof=json"`
	Output      string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
	Development bool   `yaml:"development" split_words:"true"`
}

// DatabaseConfig holds explicit connection settings. When Driver is empty
// the connection profile is taken from the settings cache instead.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" split_words:"true" validate:"omitempty,oneof=sqlserver pgx sqlite"`
	Host     string `yaml:"host" split_words:"true"`
	Port     int    `yaml:"port" split_words:"true" validate:"min=0,max=65535"`
	Name     string `yaml:"name" split_words:"true" validate:"required_with=Driver"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
}

// Explicit reports whether the database is configured directly
func (d DatabaseConfig) Explicit() bool {
	return d.Driver != ""
}

// SettingsConfig locates the connection profile cache and where to fetch it
type SettingsConfig struct {
	CachePath    string        `yaml:"cache_path" split_words:"true" validate:"required"`
	Profile      string        `yaml:"profile" split_words:"true" validate:"required"`
	SourceURL    string        `yaml:"source_url" split_words:"true" validate:"omitempty,url"`
	S3Bucket     string        `yaml:"s3_bucket" split_words:"true"`
	S3Key        string        `yaml:"s3_key" split_words:"true" validate:"required_with=S3Bucket"`
	S3Region     string        `yaml:"s3_region" split_words:"true"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" split_words:"true" validate:"gt=0"`
}

// PipelineConfig tunes the load and correlation stages
type PipelineConfig struct {
	BatchSize       int    `yaml:"batch_size" split_words:"true" validate:"min=1"`
	WindowStart     string `yaml:"window_start" split_words:"true" validate:"datetime=15:04:05"`
	WindowEnd       string `yaml:"window_end" split_words:"true" validate:"datetime=15:04:05"`
	SuccessResult   string `yaml:"success_result" split_words:"true" validate:"required"`
	MinSenderLength int    `yaml:"min_sender_length" split_words:"true" validate:"min=0"`
	OutputDir       string `yaml:"output_dir" split_words:"true"`
}

// ReportConfig controls the rendered workbook. Label is also the sheet
// name, so it follows Excel's sheet-name limits.
type ReportConfig struct {
	Label          string `yaml:"label" split_words:"true" validate:"required,max=31,excludesall=/\\:*?<>[]0x7C"`
	MaxColumnWidth int    `yaml:"max_column_width" split_words:"true" validate:"min=1,max=255"`
}

// TablesConfig names the permanent tables
type TablesConfig struct {
	Ledger string `yaml:"ledger" split_words:"true" validate:"required"`
	Member string `yaml:"member" split_words:"true" validate:"required"`
	Staff  string `yaml:"staff" split_words:"true" validate:"required"`
}

// TelemetryConfig controls tracing and the metrics textfile
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" split_words:"true" validate:"required"`
	Tracing     bool   `yaml:"tracing" split_words:"true"`
	TraceFile   string `yaml:"trace_file" split_words:"true"`
	MetricsFile string `yaml:"metrics_file" split_words:"true"`
}

// Load builds the configuration from defaults, the YAML file at path (or
// the first one found in the usual locations) and CDR_* environment
// variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("config file %s", path), err)
	}

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).WithContext("path", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML document onto cfg; absent keys keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and cross-field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}

	start, _ := time.Parse(WindowLayout, c.Pipeline.WindowStart)
	end, _ := time.Parse(WindowLayout, c.Pipeline.WindowEnd)
	if !start.Before(end) {
		return apperrors.NewConfigError(
			fmt.Sprintf("window start %s must be before window end %s", c.Pipeline.WindowStart, c.Pipeline.WindowEnd), nil)
	}
	return nil
}

// getConfigFilePath returns the first config file found, or ""
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFilePath,
		},
		Settings: SettingsConfig{
			CachePath:    DefaultSettingsCache,
			Profile:      DefaultProfile,
			FetchTimeout: DefaultFetchTimeout,
		},
		Pipeline: PipelineConfig{
			BatchSize:       DefaultBatchSize,
			WindowStart:     DefaultWindowStart,
			WindowEnd:       DefaultWindowEnd,
			SuccessResult:   DefaultSuccessResult,
			MinSenderLength: DefaultMinSenderLength,
		},
		Report: ReportConfig{
			Label:          DefaultReportLabel,
			MaxColumnWidth: DefaultMaxColumnWidth,
		},
		Tables: TablesConfig{
			Ledger: DefaultLedgerTable,
			Member: DefaultMemberTable,
			Staff:  DefaultStaffTable,
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
		},
	}
}
