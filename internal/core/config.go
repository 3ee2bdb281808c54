// Package core contains the business logic for stackbench: the run
// lifecycle phase machine, the run manager, and configuration loading.
package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/drapaimern/stackbench/pkg/models"
)

// DefaultConfig returns a Config populated with built-in defaults.
func DefaultConfig() *models.Config {
	return &models.Config{
		DataDir:         "runs",
		DefaultAgent:    "cursor",
		DefaultLanguage: "python",
		NumUseCases:     10,
		ExtractModel:    "gpt-4o-mini",
		ExtractCommand:  "claude",
		AnalysisWorkers: 3,
		AnalysisCommand: "claude",
		GitCommand:      "git",
	}
}

// LoadConfig reads .stackbench.yaml from the base path using Viper. A
// missing file falls back to defaults; missing keys fall back per key.
func LoadConfig(basePath string) (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(".stackbench")
	v.SetConfigType("yaml")
	v.AddConfigPath(basePath)

	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("default_agent", cfg.DefaultAgent)
	v.SetDefault("default_language", cfg.DefaultLanguage)
	v.SetDefault("extraction.num_use_cases", cfg.NumUseCases)
	v.SetDefault("extraction.model", cfg.ExtractModel)
	v.SetDefault("extraction.command", cfg.ExtractCommand)
	v.SetDefault("analysis.workers", cfg.AnalysisWorkers)
	v.SetDefault("analysis.command", cfg.AnalysisCommand)
	v.SetDefault("git_command", cfg.GitCommand)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading .stackbench.yaml: %w", err)
		}
	}

	cfg.DataDir = v.GetString("data_dir")
	cfg.DefaultAgent = v.GetString("default_agent")
	cfg.DefaultLanguage = v.GetString("default_language")
	cfg.NumUseCases = v.GetInt("extraction.num_use_cases")
	cfg.ExtractModel = v.GetString("extraction.model")
	cfg.ExtractCommand = v.GetString("extraction.command")
	cfg.AnalysisWorkers = v.GetInt("analysis.workers")
	cfg.AnalysisCommand = v.GetString("analysis.command")
	cfg.GitCommand = v.GetString("git_command")

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveDataDir returns the absolute runs directory for the given base path.
func ResolveDataDir(basePath string, cfg *models.Config) string {
	if filepath.IsAbs(cfg.DataDir) {
		return cfg.DataDir
	}
	return filepath.Join(basePath, cfg.DataDir)
}

// ValidateConfig checks the configuration for invalid values and returns a
// clear error message identifying every problem found.
func ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.DataDir == "" {
		errs = append(errs, "data_dir must not be empty")
	}
	if cfg.DefaultAgent == "" {
		errs = append(errs, "default_agent must not be empty")
	}
	if cfg.NumUseCases < 1 {
		errs = append(errs, fmt.Sprintf("extraction.num_use_cases must be positive, got %d", cfg.NumUseCases))
	}
	if cfg.AnalysisWorkers < 1 || cfg.AnalysisWorkers > 10 {
		errs = append(errs, fmt.Sprintf("analysis.workers %d is invalid, must be between 1 and 10", cfg.AnalysisWorkers))
	}
	if cfg.GitCommand == "" {
		errs = append(errs, "git_command must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
