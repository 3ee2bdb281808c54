package models

// Config holds tool-wide settings read from .stackbench.yaml via Viper,
// merged over built-in defaults.
type Config struct {
	// DataDir is where run directories live. Relative paths are resolved
	// against the base path.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// Defaults applied to new runs.
	DefaultAgent    string `yaml:"default_agent" mapstructure:"default_agent"`
	DefaultLanguage string `yaml:"default_language" mapstructure:"default_language"`

	// Extraction settings.
	NumUseCases    int    `yaml:"num_use_cases" mapstructure:"num_use_cases"`
	ExtractModel   string `yaml:"extract_model" mapstructure:"extract_model"`
	ExtractCommand string `yaml:"extract_command" mapstructure:"extract_command"`

	// Analysis settings.
	AnalysisWorkers int    `yaml:"analysis_workers" mapstructure:"analysis_workers"`
	AnalysisCommand string `yaml:"analysis_command" mapstructure:"analysis_command"`

	// External git client command.
	GitCommand string `yaml:"git_command" mapstructure:"git_command"`
}
