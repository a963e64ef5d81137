package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system locations
type PathsConfig struct {
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	// WorkDir receives extracted archive members; empty means a temporary directory
	WorkDir   string `yaml:"work_dir" envconfig:"WORK_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	RulesFile string `yaml:"rules_file" envconfig:"RULES_FILE"`
}

// PipelineConfig controls how tables are processed
type PipelineConfig struct {
	Workers       int    `yaml:"workers" envconfig:"WORKERS"`
	Strict        bool   `yaml:"strict" envconfig:"STRICT"`
	FillPolicy    string `yaml:"fill_policy" envconfig:"FILL_POLICY"`
	Tables        []int  `yaml:"tables" envconfig:"TABLES"`
	KeepExtracted bool   `yaml:"keep_extracted" envconfig:"KEEP_EXTRACTED"`
}

// OutputConfig controls the written artefacts
type OutputConfig struct {
	WideFile       string  `yaml:"wide_file" envconfig:"WIDE_FILE"`
	KFIFile        string  `yaml:"kfi_file" envconfig:"KFI_FILE"`
	ManifestFile   string  `yaml:"manifest_file" envconfig:"MANIFEST_FILE"`
	Workbook       bool    `yaml:"workbook" envconfig:"WORKBOOK"`
	WorkbookFile   string  `yaml:"workbook_file" envconfig:"WORKBOOK_FILE"`
	UndefinedToken string  `yaml:"undefined_token" envconfig:"UNDEFINED_TOKEN"`
	PeerGroupName  string  `yaml:"peer_group_name" envconfig:"PEER_GROUP_NAME"`
	PeerGroup      []int64 `yaml:"peer_group" envconfig:"PEER_GROUP"`
}

// TelemetryConfig contains optional tracing and metrics sinks
type TelemetryConfig struct {
	TraceFile   string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration. Precedence, highest first:
// environment variables, the YAML file, Default().
// configFile may be empty, in which case UKHE_CONFIG and the usual locations are tried.
func Load(configFile string) (*Config, error) {
	if FileExists(DotEnvFile) {
		if err := godotenv.Load(DotEnvFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
		}
	}

	cfg := Default()

	if configFile == "" {
		configFile = os.Getenv(EnvConfigFile)
	}
	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		slog.Debug("Loaded config file", slog.String("path", configFile))
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks the configuration and normalizes case-insensitive fields
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	}

	c.Pipeline.FillPolicy = strings.ToLower(strings.TrimSpace(c.Pipeline.FillPolicy))
	switch c.Pipeline.FillPolicy {
	case FillZero, FillUndefined:
	default:
		return fmt.Errorf("unknown fill policy %q (want %q or %q)", c.Pipeline.FillPolicy, FillZero, FillUndefined)
	}

	for _, id := range c.Pipeline.Tables {
		if id <= 0 {
			return fmt.Errorf("invalid table id %d", id)
		}
	}

	if c.Paths.InputDir == "" {
		return fmt.Errorf("input directory must be specified")
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("output directory must be specified")
	}
	if c.Output.WideFile == "" || c.Output.KFIFile == "" {
		return fmt.Errorf("wide and kfi output file names must be specified")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = LogFileName
	}

	return nil
}

// getConfigFilePath returns the first config file found in the common locations
func getConfigFilePath() string {
	locations := []string{
		"ukhe.yaml",
		"configs/ukhe.yaml",
	}

	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: LogFileName,
		},
		Paths: PathsConfig{
			InputDir:  DefaultInputDir,
			OutputDir: DefaultOutputDir,
			LogsDir:   DefaultLogsDir,
		},
		Pipeline: PipelineConfig{
			Workers:    1,
			FillPolicy: FillZero,
		},
		Output: OutputConfig{
			WideFile:       WideFileName,
			KFIFile:        KFIFileName,
			ManifestFile:   ManifestFileName,
			WorkbookFile:   WorkbookFileName,
			UndefinedToken: DefaultUndefinedToken,
			PeerGroupName:  DefaultPeerGroupName,
		},
	}
}
