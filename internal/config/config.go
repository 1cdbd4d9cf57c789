package config

import (
	"os"
	"strconv"

	"mscourse/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Paths    PathConfig `validate:"required"`
	Analysis AnalysisConfig
}

// PathConfig holds file system paths
type PathConfig struct {
	IntensityFile string `validate:"required"`
	OutputDir     string
}

// AnalysisConfig holds analysis defaults overridable per run
type AnalysisConfig struct {
	Delimiter     string
	Workers       int
	Logscale      bool
	MatchTimeNorm bool
	ApplyFDR      bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	pathConfig, err := loadPathConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load path configuration")
	}
	config.Paths = *pathConfig

	config.Analysis = *loadAnalysisConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadPathConfig() (*PathConfig, error) {
	intensityFile := os.Getenv("INTENSITY_FILE")
	if intensityFile == "" {
		return nil, errors.ConfigInvalid("INTENSITY_FILE is required")
	}

	return &PathConfig{
		IntensityFile: intensityFile,
		OutputDir:     getEnvOrDefault("OUTPUT_DIR", "./results"),
	}, nil
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Delimiter:     getEnvOrDefault("SAMPLE_DELIMITER", "_"),
		Workers:       getEnvIntOrDefault("ANALYSIS_WORKERS", 1),
		Logscale:      getEnvBoolOrDefault("INPUT_LOGSCALE", false),
		MatchTimeNorm: getEnvBoolOrDefault("MATCH_TIME_NORM", false),
		ApplyFDR:      getEnvBoolOrDefault("APPLY_FDR", false),
	}
}

func validateConfig(config *Config) error {
	if config.Paths.IntensityFile == "" {
		return errors.ConfigInvalid("intensity file path is required")
	}
	if config.Analysis.Workers < 1 {
		return errors.ConfigInvalid("worker count must be at least 1")
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
