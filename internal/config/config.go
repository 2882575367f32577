package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Model     ModelConfig     `yaml:"model" envconfig:"MODEL"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration. Relative
// directories resolve against BaseDir.
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR" validate:"required"`
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR" validate:"required"`
	MacroDir     string `yaml:"macro_dir" envconfig:"MACRO_DIR" validate:"required"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" validate:"required"`
	OutputsDir   string `yaml:"outputs_dir" envconfig:"OUTPUTS_DIR" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
	CPIFile      string `yaml:"cpi_file" envconfig:"CPI_FILE"`
	MoMFile      string `yaml:"mom_file" envconfig:"MOM_FILE"`
	ExpectedFile string `yaml:"expected_file" envconfig:"EXPECTED_FILE"`
}

// PipelineConfig controls feature engineering and splitting
type PipelineConfig struct {
	TestYear         int      `yaml:"test_year" envconfig:"TEST_YEAR" validate:"gt=1900"`
	IQRFactor        float64  `yaml:"iqr_factor" envconfig:"IQR_FACTOR" validate:"gt=0"`
	ClipColumns      []string `yaml:"clip_columns" envconfig:"CLIP_COLUMNS"`
	ClipFitScope     string   `yaml:"clip_fit_scope" envconfig:"CLIP_FIT_SCOPE" validate:"oneof=train all"`
	MacroAggregation string   `yaml:"macro_aggregation" envconfig:"MACRO_AGGREGATION" validate:"oneof=mean last"`
	ExtraLags        []int    `yaml:"extra_lags" envconfig:"EXTRA_LAGS" validate:"dive,gt=0"`
	ShockWindow      int      `yaml:"shock_window" envconfig:"SHOCK_WINDOW" validate:"gt=1"`
}

// ModelConfig controls estimation and validation
type ModelConfig struct {
	Target         string `yaml:"target" envconfig:"TARGET" validate:"required"`
	CovType        string `yaml:"cov_type" envconfig:"COV_TYPE" validate:"oneof=HC1 cluster"`
	TimeEffects    bool   `yaml:"time_effects" envconfig:"TIME_EFFECTS"`
	MinFitRows     int    `yaml:"min_fit_rows" envconfig:"MIN_FIT_ROWS" validate:"gt=0"`
	MinTrainRows   int    `yaml:"min_train_rows" envconfig:"MIN_TRAIN_ROWS" validate:"gt=0"`
	MinTestRows    int    `yaml:"min_test_rows" envconfig:"MIN_TEST_ROWS" validate:"gt=0"`
	MinFEValidRows int    `yaml:"min_fe_valid_rows" envconfig:"MIN_FE_VALID_ROWS" validate:"gte=0"`

	// MLTarget and Families drive the generic model suite.
	MLTarget string   `yaml:"ml_target" envconfig:"ML_TARGET" validate:"required"`
	Families []string `yaml:"families" envconfig:"FAMILIES"`
}

// TelemetryConfig controls tracing and the metrics textfile
type TelemetryConfig struct {
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first config file found when path is empty), then DESSERT_*
// environment variables. Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Model.MinTestRows > c.Model.MinTrainRows {
		return fmt.Errorf("model.min_test_rows (%d) exceeds model.min_train_rows (%d)",
			c.Model.MinTestRows, c.Model.MinTrainRows)
	}
	return nil
}

// findConfigFile returns the first config file found in common locations
func findConfigFile() string {
	locations := []string{
		DefaultConfigFile,
		filepath.Join("configs", DefaultConfigFile),
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
			Level:  "info",
			Output: "console",
		},
		Paths: PathsConfig{
			BaseDir:      ".",
			RawDir:       "data/raw",
			MacroDir:     "data/macro",
			ProcessedDir: "data/processed",
			OutputsDir:   "outputs",
			LogsDir:      "logs",
			CPIFile:      DefaultCPIFile,
			MoMFile:      DefaultMoMFile,
			ExpectedFile: DefaultExpectedFile,
		},
		Pipeline: PipelineConfig{
			TestYear:         DefaultTestYear,
			IQRFactor:        DefaultIQRFactor,
			ClipColumns:      []string{"growth_rate", "dessert_ratio"},
			ClipFitScope:     "train",
			MacroAggregation: "mean",
			ShockWindow:      DefaultShockWindow,
		},
		Model: ModelConfig{
			Target:         "target_delta_ratio",
			CovType:        "HC1",
			MinFitRows:     DefaultMinFitRows,
			MinTrainRows:   DefaultMinTrainRows,
			MinTestRows:    DefaultMinTestRows,
			MinFEValidRows: DefaultMinFEValidRows,
			MLTarget:       "target",
			Families:       []string{"linear", "ridge", "decision_tree", "random_forest", "xgboost", "mlp"},
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			ServiceName:    AppName,
		},
	}
}
