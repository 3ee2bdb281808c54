package models

import "time"

// CodeExecutability captures whether an implementation could actually run.
type CodeExecutability struct {
	IsExecutable    bool   `json:"is_executable"`
	ExecutionResult string `json:"execution_result,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

// LibraryUsage captures whether the benchmarked library was really used or
// mocked away by the agent.
type LibraryUsage struct {
	WasUsed       bool   `json:"was_used"`
	WasMocked     bool   `json:"was_mocked"`
	MockingReason string `json:"mocking_reason,omitempty"`
}

// QualityAssessment holds 0-10 quality scores with reasoning text.
type QualityAssessment struct {
	CompletenessScore string `json:"completeness_score"`
	ClarityScore      string `json:"clarity_score"`
	AccuracyScore     string `json:"accuracy_score"`
	OverallScore      string `json:"overall_score"`
	AgentReadiness    string `json:"agent_readiness"` // ready|needs_improvement|not_ready
}

// Recommendation is one documentation improvement suggestion.
type Recommendation struct {
	Priority       string `json:"priority"` // critical|high|medium|low
	Category       string `json:"category"`
	Issue          string `json:"issue"`
	Recommendation string `json:"recommendation"`
}

// AnalysisResult is the structured outcome produced by the analysis
// collaborator for one use case. The run snapshot records only its presence
// and status; the full content lives in the per-task analysis artifact.
type AnalysisResult struct {
	UseCaseNumber     int               `json:"use_case_number"`
	UseCaseName       string            `json:"use_case_name"`
	CodeExecutability CodeExecutability `json:"code_executability"`
	LibraryUsage      LibraryUsage      `json:"underlying_library_usage"`
	Quality           QualityAssessment `json:"quality_assessment"`
	DocumentationGaps []string          `json:"documentation_gaps,omitempty"`
	Recommendations   []Recommendation  `json:"recommendations,omitempty"`
	AnalyzedAt        time.Time         `json:"analyzed_at"`
}

// FailurePattern is a failure mode observed across multiple use cases.
type FailurePattern struct {
	Pattern   string `json:"pattern"`
	Frequency int    `json:"frequency"`
	Impact    string `json:"impact,omitempty"`
}

// UseCaseOutcome is one row of the aggregate report.
type UseCaseOutcome struct {
	Number       int    `json:"number"`
	Name         string `json:"name"`
	Executed     bool   `json:"executed"`
	IsExecutable bool   `json:"is_executable"`
	OverallScore string `json:"overall_score,omitempty"`
	Failure      string `json:"failure,omitempty"`
}

// OverallReport is the machine-readable aggregate summary of a run, written
// once at the analysis_overall transition alongside its narrative twin.
type OverallReport struct {
	RunID           string           `json:"run_id"`
	RepoURL         string           `json:"repo_url"`
	AgentType       string           `json:"agent_type"`
	PassFailStatus  string           `json:"pass_fail_status"` // PASS|FAIL
	SuccessRate     float64          `json:"success_rate"`
	TotalUseCases   int              `json:"total_use_cases"`
	SuccessfulCases int              `json:"successful_cases"`
	FailedCases     int              `json:"failed_cases"`
	UseCases        []UseCaseOutcome `json:"use_cases"`
	FailurePatterns []FailurePattern `json:"failure_patterns,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
