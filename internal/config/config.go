package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dopastat/internal/errors"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Data       DataConfig       `mapstructure:"data" yaml:"data"`
	Paths      PathConfig       `mapstructure:"paths" yaml:"paths"`
	Model      ModelConfig      `mapstructure:"model" yaml:"model"`
	Comparator ComparatorConfig `mapstructure:"comparator" yaml:"comparator"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Render     RenderConfig     `mapstructure:"render" yaml:"render"`
}

// DataConfig holds input settings
type DataConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// PathConfig holds file system paths
type PathConfig struct {
	FiguresDir string `mapstructure:"figures_dir" yaml:"figures_dir"`
}

// ModelConfig holds linear probability model settings
type ModelConfig struct {
	RidgeLambda float64 `mapstructure:"ridge_lambda" yaml:"ridge_lambda"`
	Threshold   float64 `mapstructure:"threshold" yaml:"threshold"`
}

// ComparatorConfig holds multi-target settings
type ComparatorConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// LoggingConfig holds log verbosity
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// RenderConfig holds figure output settings
type RenderConfig struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	DPI     float64 `mapstructure:"dpi" yaml:"dpi"`
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Data:       DataConfig{File: "data/Drug_Consumption.csv"},
		Paths:      PathConfig{FiguresDir: "figures"},
		Model:      ModelConfig{RidgeLambda: 1e-5, Threshold: 0.5},
		Comparator: ComparatorConfig{Workers: 4},
		Logging:    LoggingConfig{Level: "INFO"},
		Render:     RenderConfig{Enabled: true, DPI: 300},
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile layers defaults, an optional YAML file and environment
// variables, in that order of increasing precedence
func LoadFile(path string) (*Config, error) {
	config := Default()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "reading config file %s", path))
		}
		if err := v.Unmarshal(config); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "decoding config file %s", path))
		}
	}

	config.Data.File = getEnvOrDefault("DATA_FILE", config.Data.File)
	config.Paths.FiguresDir = getEnvOrDefault("FIGURES_DIR", config.Paths.FiguresDir)
	config.Model.RidgeLambda = getEnvFloatOrDefault("RIDGE_LAMBDA", config.Model.RidgeLambda)
	config.Model.Threshold = getEnvFloatOrDefault("DECISION_THRESHOLD", config.Model.Threshold)
	config.Comparator.Workers = getEnvIntOrDefault("COMPARATOR_WORKERS", config.Comparator.Workers)
	config.Logging.Level = strings.ToUpper(getEnvOrDefault("LOG_LEVEL", config.Logging.Level))
	config.Render.Enabled = getEnvBoolOrDefault("RENDER_FIGURES", config.Render.Enabled)
	config.Render.DPI = getEnvFloatOrDefault("RENDER_DPI", config.Render.DPI)

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Save writes the configuration as YAML, creating parent directories
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IOError(fmt.Sprintf("creating %s", dir), err)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.IOError(fmt.Sprintf("writing %s", path), err)
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.File) == "" {
		return errors.ConfigInvalid("DATA_FILE is required")
	}
	if strings.TrimSpace(c.Paths.FiguresDir) == "" {
		return errors.ConfigInvalid("FIGURES_DIR is required")
	}
	if !(c.Model.RidgeLambda > 0) {
		return errors.ConfigInvalid("RIDGE_LAMBDA must be positive")
	}
	if !(c.Model.Threshold > 0 && c.Model.Threshold < 1) {
		return errors.ConfigInvalid("DECISION_THRESHOLD must be in (0, 1)")
	}
	if c.Comparator.Workers < 1 {
		return errors.ConfigInvalid("COMPARATOR_WORKERS must be at least 1")
	}
	if c.Render.DPI <= 0 {
		return errors.ConfigInvalid("RENDER_DPI must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
