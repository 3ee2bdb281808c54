package core

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/drapaimern/stackbench/pkg/models"
)

// TestLifecyclePhaseMonotonic drives a run with a random operation stream and
// checks that the phase index never decreases, no matter how operations are
// ordered or how often they fail.
func TestLifecyclePhaseMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		run := newTestRun(models.PhaseCreated)
		numCases := rapid.IntRange(1, 5).Draw(t, "numCases")

		outcomes := []models.ExecutionStatus{
			models.ExecutionExecuted, models.ExecutionFailed, models.ExecutionSkipped,
		}
		analyses := []models.AnalysisStatus{models.AnalysisAnalyzed, models.AnalysisFailed}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before := run.Phase.Index()

			op := rapid.IntRange(0, 6).Draw(t, "op")
			switch op {
			case 0:
				_ = MarkCloned(run)
			case 1:
				_ = SetUseCases(run, sampleCases(numCases))
			case 2:
				number := rapid.IntRange(0, numCases+1).Draw(t, "execNumber")
				outcome := rapid.SampledFrom(outcomes).Draw(t, "execOutcome")
				found := rapid.Bool().Draw(t, "found")
				_ = RecordExecution(run, number, outcome, models.MethodIDEManual, found)
			case 3:
				number := rapid.IntRange(0, numCases+1).Draw(t, "anaNumber")
				outcome := rapid.SampledFrom(analyses).Draw(t, "anaOutcome")
				_ = RecordAnalysis(run, number, outcome, true)
			case 4:
				_ = MarkOverallReportWritten(run)
			case 5:
				_ = MarkCompleted(run)
			case 6:
				_ = ResetAnalyses(run, nil)
			}

			after := run.Phase.Index()
			if after < before {
				t.Fatalf("phase went backwards: %d -> %d (op %d)", before, after, op)
			}
			if after > before+1 {
				t.Fatalf("phase skipped ahead: %d -> %d (op %d)", before, after, op)
			}
		}

		// Task numbers are stable 1..N once assigned.
		if len(run.Tasks) > 0 {
			if len(run.Tasks) != numCases {
				t.Fatalf("expected %d tasks, got %d", numCases, len(run.Tasks))
			}
			for i := range run.Tasks {
				if run.Tasks[i].Number != i+1 {
					t.Fatalf("task at index %d has number %d", i, run.Tasks[i].Number)
				}
			}
		}
	})
}

// TestLifecycleRejectedOpsLeaveStateUntouched checks that an operation whose
// precondition fails does not mutate any task sub-state.
func TestLifecycleRejectedOpsLeaveStateUntouched(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		run := newTestRun(models.PhaseCreated)
		_ = MarkCloned(run)
		_ = SetUseCases(run, sampleCases(3))

		// Task 1 executed, task 2 failed, task 3 pending.
		_ = RecordExecution(run, 1, models.ExecutionExecuted, models.MethodIDEManual, true)
		_ = RecordExecution(run, 2, models.ExecutionFailed, models.MethodIDEManual, false)

		number := rapid.SampledFrom([]int{2, 3, 9}).Draw(t, "number")
		err := RecordAnalysis(run, number, models.AnalysisAnalyzed, true)
		if err == nil {
			t.Fatalf("analysis of ineligible use case %d succeeded", number)
		}

		for n := 1; n <= 3; n++ {
			if run.Task(n).AnalysisStatus != models.AnalysisNotAnalyzed {
				t.Fatalf("rejected analysis mutated task %d", n)
			}
		}
	})
}
