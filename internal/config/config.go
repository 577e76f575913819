package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	allocation "water-usage/internal/allocation/domain"
	usage "water-usage/internal/usage/domain"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. WAPUSAGE_USAGE_DSN.
	EnvPrefix = "WAPUSAGE"
	// EnvConfigPath names the config file when no path is given.
	EnvConfigPath = "WAPUSAGE_CONFIG"

	dateLayout = "2006-01-02"
)

// Config is the run configuration.
type Config struct {
	Organization string           `yaml:"organization" envconfig:"ORGANIZATION" validate:"required"`
	Telemetry    TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
	Consents     ConsentsConfig   `yaml:"consents" envconfig:"CONSENTS"`
	Allocation   AllocationConfig `yaml:"allocation" envconfig:"ALLOCATION"`
	Usage        UsageConfig      `yaml:"usage" envconfig:"USAGE"`
	Output       OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
	Logging      LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Metrics      MetricsConfig    `yaml:"metrics" envconfig:"METRICS"`
}

// TelemetryConfig bounds the usage records, both days inclusive.
type TelemetryConfig struct {
	From string `yaml:"from" envconfig:"FROM" validate:"required,datetime=2006-01-02"`
	To   string `yaml:"to" envconfig:"TO" validate:"required,datetime=2006-01-02"`
}

// ConsentsConfig lists the consent reference files.
type ConsentsConfig struct {
	Lists []ListConfig `yaml:"lists" ignored:"true" validate:"required,min=1,dive"`
}

// ListConfig is one reference CSV.
type ListConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Column string `yaml:"column"`
}

// AllocationConfig describes the consent to WAP allocation source.
type AllocationConfig struct {
	Driver         string   `yaml:"driver" envconfig:"DRIVER" validate:"required,oneof=pgx sqlite"`
	DSN            string   `yaml:"dsn" envconfig:"DSN" validate:"required"`
	Table          string   `yaml:"table" envconfig:"TABLE"`
	WAPColumn      string   `yaml:"wap_column" envconfig:"WAP_COLUMN"`
	ConsentColumn  string   `yaml:"consent_column" envconfig:"CONSENT_COLUMN"`
	ActivityColumn string   `yaml:"activity_column" envconfig:"ACTIVITY_COLUMN"`
	Activities     []string `yaml:"activities" envconfig:"ACTIVITIES" validate:"required,min=1,dive,required"`
	BatchSize      int      `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"gte=0"`
}

// UsageConfig describes the daily telemetry source.
type UsageConfig struct {
	Driver         string   `yaml:"driver" envconfig:"DRIVER" validate:"required,oneof=pgx sqlite"`
	DSN            string   `yaml:"dsn" envconfig:"DSN" validate:"required"`
	Table          string   `yaml:"table" envconfig:"TABLE"`
	SiteColumn     string   `yaml:"site_column" envconfig:"SITE_COLUMN"`
	DatasetColumn  string   `yaml:"dataset_column" envconfig:"DATASET_COLUMN"`
	DateColumn     string   `yaml:"date_column" envconfig:"DATE_COLUMN"`
	ValueColumn    string   `yaml:"value_column" envconfig:"VALUE_COLUMN"`
	DatasetTypeIDs []string `yaml:"dataset_type_ids" envconfig:"DATASET_TYPE_IDS" validate:"required,min=1,dive,required"`
	BatchSize      int      `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"gte=0"`
}

// OutputConfig controls the export.
type OutputConfig struct {
	Dir       string   `yaml:"dir" envconfig:"DIR" validate:"required"`
	Name      string   `yaml:"name" envconfig:"NAME"`
	Formats   []string `yaml:"formats" envconfig:"FORMATS" validate:"required,min=1,unique,dive,oneof=csv xlsx pdf"`
	Delimiter string   `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// MetricsConfig controls the metrics textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" envconfig:"TEXTFILE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Organization: "Synlait",
		Telemetry: TelemetryConfig{
			From: "2014-07-01",
			To:   "2019-06-30",
		},
		Consents: ConsentsConfig{
			Lists: []ListConfig{
				{Path: "SynlaitSurfacewaterTake.csv", Column: "ConsentNo"},
				{Path: "SynlaitGroundwaterTake.csv", Column: "ConsentNo"},
			},
		},
		Allocation: AllocationConfig{
			Driver:     "pgx",
			Activities: []string{allocation.ActivityTakeSurfaceWater, allocation.ActivityTakeGroundwater},
		},
		Usage: UsageConfig{
			Driver:         "pgx",
			DatasetTypeIDs: append([]string(nil), usage.DefaultDatasetTypeIDs...),
		},
		Output: OutputConfig{
			Dir:       ".",
			Formats:   []string{"csv"},
			Delimiter: ",",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads defaults, then the YAML file, then WAPUSAGE_* environment overrides.
// An empty path falls back to WAPUSAGE_CONFIG; no file is read when both are empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("config: env: %w", err)
	}
	cfg.applyDerived()
	return cfg, nil
}

func (c *Config) applyDerived() {
	if c.Output.Name == "" {
		c.Output.Name = c.Organization + "Usage"
	}
}

// Validate checks the configuration and the telemetry range.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Range(); err != nil {
		return err
	}
	return nil
}

// Range returns the telemetry date range.
func (c Config) Range() (usage.DateRange, error) {
	from, err := time.Parse(dateLayout, c.Telemetry.From)
	if err != nil {
		return usage.DateRange{}, fmt.Errorf("config: telemetry.from: %w", err)
	}
	to, err := time.Parse(dateLayout, c.Telemetry.To)
	if err != nil {
		return usage.DateRange{}, fmt.Errorf("config: telemetry.to: %w", err)
	}
	r, err := usage.NewDateRange(from, to)
	if err != nil {
		return usage.DateRange{}, fmt.Errorf("config: telemetry %s..%s: %w", c.Telemetry.From, c.Telemetry.To, err)
	}
	return r, nil
}

// DelimiterRune returns the CSV delimiter.
func (c Config) DelimiterRune() rune {
	for _, r := range c.Output.Delimiter {
		return r
	}
	return ','
}
