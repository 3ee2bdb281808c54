package models

import "time"

// RunPhase represents the coarse-grained lifecycle position of a benchmark run.
// Phases advance monotonically; no operation moves a run backward.
type RunPhase string

const (
	PhaseCreated            RunPhase = "created"
	PhaseCloned             RunPhase = "cloned"
	PhaseExtracted          RunPhase = "extracted"
	PhaseExecution          RunPhase = "execution"
	PhaseAnalysisIndividual RunPhase = "analysis_individual"
	PhaseAnalysisOverall    RunPhase = "analysis_overall"
	PhaseCompleted          RunPhase = "completed"
)

// phaseOrder fixes the canonical ordering of run phases.
var phaseOrder = []RunPhase{
	PhaseCreated,
	PhaseCloned,
	PhaseExtracted,
	PhaseExecution,
	PhaseAnalysisIndividual,
	PhaseAnalysisOverall,
	PhaseCompleted,
}

// Index returns the position of the phase in lifecycle order, or -1 for an
// unknown phase.
func (p RunPhase) Index() int {
	for i, phase := range phaseOrder {
		if p == phase {
			return i
		}
	}
	return -1
}

// Before reports whether p comes strictly earlier than other in lifecycle order.
func (p RunPhase) Before(other RunPhase) bool {
	return p.Index() < other.Index()
}

// ExecutionStatus represents the execution sub-state of a use case.
type ExecutionStatus string

const (
	ExecutionNotExecuted ExecutionStatus = "not_executed"
	ExecutionExecuted    ExecutionStatus = "executed"
	ExecutionFailed      ExecutionStatus = "failed"
	ExecutionSkipped     ExecutionStatus = "skipped"
)

// Terminal reports whether the execution sub-state is a terminal value.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionExecuted || s == ExecutionFailed || s == ExecutionSkipped
}

// AnalysisStatus represents the analysis sub-state of a use case.
type AnalysisStatus string

const (
	AnalysisNotAnalyzed AnalysisStatus = "not_analyzed"
	AnalysisAnalyzed    AnalysisStatus = "analyzed"
	AnalysisFailed      AnalysisStatus = "failed"
)

// Terminal reports whether the analysis sub-state is a terminal value.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisAnalyzed || s == AnalysisFailed
}

// ExecutionMethod tags how a use case implementation was produced.
type ExecutionMethod string

const (
	MethodIDEManual    ExecutionMethod = "ide_manual"
	MethodCLIAutomated ExecutionMethod = "cli_automated"
)

// ErrorEntry is one timestamped entry in a run- or task-level error log.
type ErrorEntry struct {
	Time    time.Time `yaml:"time"`
	Message string    `yaml:"message"`
}

// RunConfig describes a run's inputs. It is immutable after the run is
// created; changing any parameter requires a new run.
type RunConfig struct {
	RepoURL         string   `yaml:"repo_url"`
	Branch          string   `yaml:"branch,omitempty"`
	IncludeFolders  []string `yaml:"include_folders,omitempty"`
	AgentType       string   `yaml:"agent_type"`
	Language        string   `yaml:"language,omitempty"`
	NumUseCases     int      `yaml:"num_use_cases"`
	ExtractModel    string   `yaml:"extract_model,omitempty"`
	AnalysisWorkers int      `yaml:"analysis_workers,omitempty"`
}

// TaskRecord tracks execution and analysis state for one extracted use case.
// Records are created at extraction time and identified by a stable 1-based
// sequence number that is never reused within the run.
type TaskRecord struct {
	Number     int    `yaml:"number"`
	Name       string `yaml:"name"`
	TargetFile string `yaml:"target_file"`

	ExecutionStatus      ExecutionStatus `yaml:"execution_status"`
	ExecutionMethod      ExecutionMethod `yaml:"execution_method,omitempty"`
	ExecutedAt           *time.Time      `yaml:"executed_at,omitempty"`
	ImplementationExists bool            `yaml:"implementation_exists"`

	AnalysisStatus AnalysisStatus `yaml:"analysis_status"`
	AnalyzedAt     *time.Time     `yaml:"analyzed_at,omitempty"`
	AnalysisExists bool           `yaml:"analysis_exists"`

	Errors []ErrorEntry `yaml:"errors,omitempty"`
}

// Eligible reports whether the task can be analyzed: execution finished
// successfully and the implementation artifact was found on disk.
func (t *TaskRecord) Eligible() bool {
	return t.ExecutionStatus == ExecutionExecuted && t.ImplementationExists
}

// Run is the root aggregate for one benchmark attempt. It exclusively owns
// its TaskRecords; completion flags are derived from them, never stored.
type Run struct {
	ID        string    `yaml:"id"`
	RepoName  string    `yaml:"repo_name"`
	Phase     RunPhase  `yaml:"phase"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`

	Config RunConfig    `yaml:"config"`
	Tasks  []TaskRecord `yaml:"use_cases,omitempty"`
	Errors []ErrorEntry `yaml:"errors,omitempty"`
}

// Task returns the record with the given sequence number, or nil.
func (r *Run) Task(number int) *TaskRecord {
	for i := range r.Tasks {
		if r.Tasks[i].Number == number {
			return &r.Tasks[i]
		}
	}
	return nil
}

// AllExecuted reports whether every task has a terminal execution sub-state.
// A run with no tasks has nothing executed.
func (r *Run) AllExecuted() bool {
	if len(r.Tasks) == 0 {
		return false
	}
	for i := range r.Tasks {
		if !r.Tasks[i].ExecutionStatus.Terminal() {
			return false
		}
	}
	return true
}

// AllAnalyzed reports whether every analysis-eligible task has a terminal
// analysis sub-state. Runs with no eligible tasks are never "all analyzed".
func (r *Run) AllAnalyzed() bool {
	eligible := 0
	for i := range r.Tasks {
		if !r.Tasks[i].Eligible() {
			continue
		}
		eligible++
		if !r.Tasks[i].AnalysisStatus.Terminal() {
			return false
		}
	}
	return eligible > 0
}

// ExecutedCount returns the number of tasks executed successfully.
func (r *Run) ExecutedCount() int {
	n := 0
	for i := range r.Tasks {
		if r.Tasks[i].ExecutionStatus == ExecutionExecuted {
			n++
		}
	}
	return n
}

// AnalyzedCount returns the number of tasks analyzed successfully.
func (r *Run) AnalyzedCount() int {
	n := 0
	for i := range r.Tasks {
		if r.Tasks[i].AnalysisStatus == AnalysisAnalyzed {
			n++
		}
	}
	return n
}

// EligibleForAnalysis returns the sequence numbers of tasks that are ready
// to be analyzed and have not been analyzed yet.
func (r *Run) EligibleForAnalysis() []int {
	var numbers []int
	for i := range r.Tasks {
		if r.Tasks[i].Eligible() && r.Tasks[i].AnalysisStatus == AnalysisNotAnalyzed {
			numbers = append(numbers, r.Tasks[i].Number)
		}
	}
	return numbers
}

// HasErrors reports whether the run or any of its tasks logged an error.
func (r *Run) HasErrors() bool {
	if len(r.Errors) > 0 {
		return true
	}
	for i := range r.Tasks {
		if len(r.Tasks[i].Errors) > 0 {
			return true
		}
	}
	return false
}
