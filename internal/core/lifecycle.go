package core

import (
	"fmt"
	"time"

	"github.com/drapaimern/stackbench/pkg/models"
)

// The lifecycle functions below are the run phase machine: one mutator per
// domain event, operating on an in-memory Run. Each validates its
// precondition against current state, applies the mutation, re-evaluates
// automatic phase advancement, and touches UpdatedAt. Persistence is the
// caller's concern (RunManager, analysis coordinator), which makes the
// no-partial-write guarantee trivial: nothing is saved unless the whole
// mutation succeeded.

// MarkCloned records that the repository has been materialized locally.
// The run must be in the created phase.
func MarkCloned(r *models.Run) error {
	if r.Phase != models.PhaseCreated {
		return transitionError(r, models.PhaseCreated)
	}
	advance(r, models.PhaseCloned)
	return nil
}

// SetUseCases populates the task collection from the extraction
// collaborator's output, assigning sequence numbers 1..N in extraction
// order. The run must be in the cloned phase and the list must be non-empty.
func SetUseCases(r *models.Run, cases []models.UseCase) error {
	if r.Phase != models.PhaseCloned {
		return transitionError(r, models.PhaseCloned)
	}
	if len(cases) == 0 {
		return fmt.Errorf("run %s: %w", r.ID, ErrEmptyExtraction)
	}

	tasks := make([]models.TaskRecord, 0, len(cases))
	for i, uc := range cases {
		target := uc.TargetFile
		if target == "" {
			target = "solution.py"
		}
		tasks = append(tasks, models.TaskRecord{
			Number:          i + 1,
			Name:            uc.Name,
			TargetFile:      target,
			ExecutionStatus: models.ExecutionNotExecuted,
			AnalysisStatus:  models.AnalysisNotAnalyzed,
		})
	}
	r.Tasks = tasks
	advance(r, models.PhaseExtracted)
	return nil
}

// RecordExecution applies the execution collaborator's report for one use
// case: a terminal outcome, the method used, and whether the expected
// implementation artifact was found on disk. When the last task reaches a
// terminal execution sub-state the run advances to the execution phase.
func RecordExecution(r *models.Run, number int, outcome models.ExecutionStatus, method models.ExecutionMethod, artifactFound bool) error {
	if r.Phase != models.PhaseExtracted && r.Phase != models.PhaseExecution {
		return fmt.Errorf("run %s: expected phase %s or %s, got %s: %w",
			r.ID, models.PhaseExtracted, models.PhaseExecution, r.Phase, ErrInvalidTransition)
	}
	if !outcome.Terminal() {
		return fmt.Errorf("run %s: execution outcome %q is not terminal: %w", r.ID, outcome, ErrInvalidTransition)
	}
	task := r.Task(number)
	if task == nil {
		return fmt.Errorf("run %s: use case %d: %w", r.ID, number, ErrUnknownTask)
	}

	now := time.Now().UTC()
	task.ExecutionStatus = outcome
	task.ExecutionMethod = method
	task.ExecutedAt = &now
	task.ImplementationExists = artifactFound

	if r.Phase == models.PhaseExtracted && r.AllExecuted() {
		advance(r, models.PhaseExecution)
		return nil
	}
	touch(r)
	return nil
}

// RecordAnalysis applies the analysis collaborator's outcome for one use
// case. The target task's execution sub-state must be executed; analysis of
// skipped or failed tasks is rejected and leaves the run untouched. When the
// last eligible task reaches a terminal analysis sub-state the run advances
// to analysis_individual.
func RecordAnalysis(r *models.Run, number int, outcome models.AnalysisStatus, artifactFound bool) error {
	task := r.Task(number)
	if task == nil {
		return fmt.Errorf("run %s: use case %d: %w", r.ID, number, ErrUnknownTask)
	}
	if task.ExecutionStatus != models.ExecutionExecuted {
		return fmt.Errorf("run %s: use case %d has execution status %s: %w",
			r.ID, number, task.ExecutionStatus, ErrTaskNotEligible)
	}
	if !outcome.Terminal() {
		return fmt.Errorf("run %s: analysis outcome %q is not terminal: %w", r.ID, outcome, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	task.AnalysisStatus = outcome
	task.AnalyzedAt = &now
	task.AnalysisExists = artifactFound

	if r.Phase == models.PhaseExecution && r.AllAnalyzed() {
		advance(r, models.PhaseAnalysisIndividual)
		return nil
	}
	touch(r)
	return nil
}

// MarkOverallReportWritten records that the aggregate report pair has been
// generated from the individual analyses.
func MarkOverallReportWritten(r *models.Run) error {
	if r.Phase != models.PhaseAnalysisIndividual {
		return transitionError(r, models.PhaseAnalysisIndividual)
	}
	advance(r, models.PhaseAnalysisOverall)
	return nil
}

// MarkCompleted is the final explicit marker once all prior phases are
// satisfied.
func MarkCompleted(r *models.Run) error {
	if r.Phase != models.PhaseAnalysisOverall {
		return transitionError(r, models.PhaseAnalysisOverall)
	}
	advance(r, models.PhaseCompleted)
	return nil
}

// ResetAnalyses clears the analysis sub-state of the given use cases so the
// analysis collaborator can redo them. With no numbers, every task with a
// terminal analysis sub-state is reset. The phase is never rewound; re-running
// analysis on a later-phase run records fresh results without regressing the
// lifecycle.
func ResetAnalyses(r *models.Run, numbers []int) error {
	if len(numbers) == 0 {
		for i := range r.Tasks {
			if r.Tasks[i].AnalysisStatus.Terminal() {
				resetAnalysis(&r.Tasks[i])
			}
		}
		touch(r)
		return nil
	}
	for _, number := range numbers {
		task := r.Task(number)
		if task == nil {
			return fmt.Errorf("run %s: use case %d: %w", r.ID, number, ErrUnknownTask)
		}
		resetAnalysis(task)
	}
	touch(r)
	return nil
}

func resetAnalysis(task *models.TaskRecord) {
	task.AnalysisStatus = models.AnalysisNotAnalyzed
	task.AnalyzedAt = nil
	task.AnalysisExists = false
}

// RecordError appends a timestamped message to the run-level error log, or
// to the task's log when number is a known sequence number. It never changes
// phase or any sub-state and never fails: logging a secondary failure must
// not mask the primary one, so an unknown number falls back to the run log.
func RecordError(r *models.Run, number int, message string) {
	entry := models.ErrorEntry{Time: time.Now().UTC(), Message: message}
	if task := r.Task(number); task != nil {
		task.Errors = append(task.Errors, entry)
	} else {
		r.Errors = append(r.Errors, entry)
	}
	r.UpdatedAt = entry.Time
}

// advance moves the run to the next phase and touches UpdatedAt. Callers
// have already validated the transition.
func advance(r *models.Run, phase models.RunPhase) {
	r.Phase = phase
	touch(r)
}

func touch(r *models.Run) {
	r.UpdatedAt = time.Now().UTC()
}

func transitionError(r *models.Run, expected models.RunPhase) error {
	return fmt.Errorf("run %s: expected phase %s, got %s: %w", r.ID, expected, r.Phase, ErrInvalidTransition)
}
