package models

// UseCase is one extracted, independently executable unit of benchmark work,
// produced by the extraction collaborator from repository documentation.
type UseCase struct {
	Name                   string   `json:"name"`
	ElevatorPitch          string   `json:"elevator_pitch"`
	TargetAudience         string   `json:"target_audience"`
	FunctionalRequirements []string `json:"functional_requirements"`
	UserStories            []string `json:"user_stories"`
	SystemDesign           string   `json:"system_design"`
	ArchitecturePattern    string   `json:"architecture_pattern"`
	ComplexityLevel        string   `json:"complexity_level"`
	RealWorldScenario      string   `json:"real_world_scenario"`
	SourceDocuments        []string `json:"source_documents"`
	TargetFile             string   `json:"target_file"`
}

// ExtractionResult summarizes one extraction pass over a repository's docs.
type ExtractionResult struct {
	DocumentsProcessed int       `json:"documents_processed"`
	DocumentsWithCases int       `json:"documents_with_use_cases"`
	TotalFound         int       `json:"total_use_cases_found"`
	UseCases           []UseCase `json:"use_cases"`
	ProcessingSeconds  float64   `json:"processing_time_seconds"`
	Errors             []string  `json:"errors,omitempty"`
}
