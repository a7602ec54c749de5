package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"consultetl/internal/etl/sources"
)

// Trigger types decide how often the pipeline runs.
const (
	TriggerManual    = "manual"     // run once and exit
	TriggerSchedule  = "schedule"   // run on a cron expression
	TriggerFileWatch = "file_watch" // run whenever the input file changes
)

// Defaults used when neither the config file nor the environment set a value.
const (
	DefaultInputPath     = "data/sample_customer_data.txt"
	DefaultOutputDir     = "output"
	DefaultExtension     = ".csv"
	DefaultDelimiter     = "|"
	DefaultDetailMarker  = "D"
	DefaultWatchDebounce = 500 * time.Millisecond
)

// EnvConfigPath names the environment variable holding the YAML config path.
const EnvConfigPath = "CONSULT_ETL_CONFIG"

// Config is the runtime configuration of the pipeline.
type Config struct {
	InputPath    string  `yaml:"input_path"`
	OutputDir    string  `yaml:"output_dir"`
	Extension    string  `yaml:"extension"`
	Delimiter    string  `yaml:"delimiter"`
	DetailMarker string  `yaml:"detail_marker"`
	Trigger      Trigger `yaml:"trigger"`
	Log          Log     `yaml:"log"`
}

// Trigger configures when runs happen.
type Trigger struct {
	Type          string        `yaml:"type"`
	Schedule      string        `yaml:"schedule"` // cron expression for TriggerSchedule
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the configuration used with no file and no environment.
func Default() Config {
	return Config{
		InputPath:    DefaultInputPath,
		OutputDir:    DefaultOutputDir,
		Extension:    DefaultExtension,
		Delimiter:    DefaultDelimiter,
		DetailMarker: DefaultDetailMarker,
		Trigger:      Trigger{Type: TriggerManual, WatchDebounce: DefaultWatchDebounce},
		Log:          Log{Level: "info", Format: "text"},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONSULT_ETL_CONFIG (if set), then individual environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	envString("CONSULT_ETL_INPUT", &c.InputPath)
	envString("CONSULT_ETL_OUTPUT_DIR", &c.OutputDir)
	envString("CONSULT_ETL_TRIGGER", &c.Trigger.Type)
	envString("CONSULT_ETL_SCHEDULE", &c.Trigger.Schedule)
	envString("CONSULT_ETL_LOG_LEVEL", &c.Log.Level)
	envString("CONSULT_ETL_LOG_FORMAT", &c.Log.Format)

	debounce, err := envDuration("CONSULT_ETL_WATCH_DEBOUNCE", c.Trigger.WatchDebounce)
	if err != nil {
		return err
	}
	c.Trigger.WatchDebounce = debounce
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("input_path is required")
	}
	if err := sources.ValidateDelimiter(c.Delimiter); err != nil {
		return err
	}
	if c.DetailMarker == "" {
		return fmt.Errorf("detail_marker is required")
	}

	switch c.Trigger.Type {
	case TriggerManual, TriggerFileWatch:
	case TriggerSchedule:
		if _, err := cron.ParseStandard(c.Trigger.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Trigger.Schedule, err)
		}
	default:
		return fmt.Errorf("unknown trigger type: %q", c.Trigger.Type)
	}
	if c.Trigger.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}
	return nil
}

func envString(varName string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		*dst = v
	}
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
