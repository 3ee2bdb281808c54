package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// fakeAnalyzer records calls and fails on demand, tracking the peak number
// of concurrent invocations.
type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  map[int]int
	fail   map[int]bool
	delay  time.Duration
	active int32
	peak   int32
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{calls: make(map[int]int), fail: make(map[int]bool)}
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req Request) (*models.AnalysisResult, error) {
	active := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if active <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, active) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls[req.Number]++
	shouldFail := f.fail[req.Number]
	f.mu.Unlock()

	if shouldFail {
		return nil, fmt.Errorf("agent crashed on use case %d", req.Number)
	}
	return &models.AnalysisResult{UseCaseNumber: req.Number, UseCaseName: req.Name}, nil
}

func (f *fakeAnalyzer) callCount(number int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[number]
}

func seedExecutedRun(t *testing.T, store storage.RunStore, numTasks int) *models.Run {
	t.Helper()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	run := &models.Run{
		ID:        "run-1",
		RepoName:  "httpx",
		Phase:     models.PhaseExecution,
		CreatedAt: now,
		UpdatedAt: now,
		Config: models.RunConfig{
			RepoURL:     "https://github.com/projectdiscovery/httpx",
			AgentType:   "cursor",
			Language:    "python",
			NumUseCases: numTasks,
		},
	}
	for i := 1; i <= numTasks; i++ {
		executed := now.Add(time.Duration(i) * time.Minute)
		run.Tasks = append(run.Tasks, models.TaskRecord{
			Number:               i,
			Name:                 fmt.Sprintf("use case %d", i),
			TargetFile:           "solution.py",
			ExecutionStatus:      models.ExecutionExecuted,
			ExecutionMethod:      models.MethodIDEManual,
			ExecutedAt:           &executed,
			ImplementationExists: true,
			AnalysisStatus:       models.AnalysisNotAnalyzed,
		})
	}
	if err := store.Create(run); err != nil {
		t.Fatal(err)
	}
	return run
}

func TestCoordinator_AnalyzesAllPendingExactlyOnce(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	seedExecutedRun(t, store, 10)

	analyzer := newFakeAnalyzer()
	coordinator := NewCoordinator(store, analyzer)

	summary, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{Workers: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Attempted != 10 || summary.Succeeded != 10 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	for i := 1; i <= 10; i++ {
		if got := analyzer.callCount(i); got != 1 {
			t.Errorf("use case %d analyzed %d times, want 1", i, got)
		}
	}

	loaded, err := store.Load("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Phase != models.PhaseAnalysisIndividual {
		t.Errorf("expected analysis_individual phase, got %s", loaded.Phase)
	}
	if loaded.AnalyzedCount() != 10 {
		t.Errorf("expected 10 analyzed, got %d", loaded.AnalyzedCount())
	}
	for i := range loaded.Tasks {
		if !loaded.Tasks[i].AnalysisExists || loaded.Tasks[i].AnalyzedAt == nil {
			t.Errorf("task %d missing analysis markers: %+v", i+1, loaded.Tasks[i])
		}
	}
}

func TestCoordinator_WorkerBoundRespected(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	seedExecutedRun(t, store, 8)

	analyzer := newFakeAnalyzer()
	analyzer.delay = 20 * time.Millisecond
	coordinator := NewCoordinator(store, analyzer)

	if _, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{Workers: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if peak := atomic.LoadInt32(&analyzer.peak); peak > 2 {
		t.Errorf("peak concurrency %d exceeds worker bound 2", peak)
	}
}

func TestCoordinator_ResumeSkipsAnalyzed(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	run := seedExecutedRun(t, store, 10)

	// Pre-analyze the first four.
	analyzedAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		run.Tasks[i].AnalysisStatus = models.AnalysisAnalyzed
		run.Tasks[i].AnalyzedAt = &analyzedAt
		run.Tasks[i].AnalysisExists = true
	}
	if err := store.Save(run); err != nil {
		t.Fatal(err)
	}

	analyzer := newFakeAnalyzer()
	coordinator := NewCoordinator(store, analyzer)

	summary, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Attempted != 6 {
		t.Errorf("expected 6 attempted, got %d", summary.Attempted)
	}

	for i := 1; i <= 4; i++ {
		if got := analyzer.callCount(i); got != 0 {
			t.Errorf("pre-analyzed use case %d re-analyzed %d times", i, got)
		}
	}

	loaded, err := store.Load("run-1")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if !loaded.Tasks[i].AnalyzedAt.Equal(analyzedAt) {
			t.Errorf("pre-analyzed task %d timestamp changed: %v", i+1, loaded.Tasks[i].AnalyzedAt)
		}
	}
	if loaded.Phase != models.PhaseAnalysisIndividual {
		t.Errorf("expected analysis_individual phase, got %s", loaded.Phase)
	}
}

func TestCoordinator_PartialFailureDoesNotAbortBatch(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	seedExecutedRun(t, store, 5)

	analyzer := newFakeAnalyzer()
	analyzer.fail[2] = true
	analyzer.fail[4] = true
	coordinator := NewCoordinator(store, analyzer)

	summary, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{Workers: 2})
	if err != nil {
		t.Fatalf("failed analyses must not abort the batch: %v", err)
	}
	if summary.Succeeded != 3 || summary.Failed != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	loaded, err := store.Load("run-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, number := range []int{2, 4} {
		task := loaded.Task(number)
		if task.AnalysisStatus != models.AnalysisFailed {
			t.Errorf("use case %d: expected failed analysis, got %s", number, task.AnalysisStatus)
		}
		if len(task.Errors) == 0 {
			t.Errorf("use case %d: expected logged error", number)
		}
	}

	// Failed is terminal, so the run still advances.
	if loaded.Phase != models.PhaseAnalysisIndividual {
		t.Errorf("expected analysis_individual phase, got %s", loaded.Phase)
	}
}

func TestCoordinator_ForceReanalyzes(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	seedExecutedRun(t, store, 3)

	analyzer := newFakeAnalyzer()
	coordinator := NewCoordinator(store, analyzer)

	if _, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{}); err != nil {
		t.Fatal(err)
	}
	summary, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Attempted != 3 {
		t.Errorf("expected 3 re-analyzed, got %d", summary.Attempted)
	}
	for i := 1; i <= 3; i++ {
		if got := analyzer.callCount(i); got != 2 {
			t.Errorf("use case %d analyzed %d times, want 2", i, got)
		}
	}
}

func TestCoordinator_SecondRunIsNoOp(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	seedExecutedRun(t, store, 3)

	analyzer := newFakeAnalyzer()
	coordinator := NewCoordinator(store, analyzer)

	if _, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{}); err != nil {
		t.Fatal(err)
	}
	summary, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Attempted != 0 {
		t.Errorf("expected no-op batch, attempted %d", summary.Attempted)
	}
}

func TestCoordinator_RejectsEarlyPhase(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	run := seedExecutedRun(t, store, 2)
	run.Phase = models.PhaseExtracted
	if err := store.Save(run); err != nil {
		t.Fatal(err)
	}

	coordinator := NewCoordinator(store, newFakeAnalyzer())
	_, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{})
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCoordinator_OnlyValidatesNumbers(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	run := seedExecutedRun(t, store, 3)
	run.Tasks[2].ExecutionStatus = models.ExecutionFailed
	run.Tasks[2].ImplementationExists = false
	if err := store.Save(run); err != nil {
		t.Fatal(err)
	}

	coordinator := NewCoordinator(store, newFakeAnalyzer())

	_, err := coordinator.AnalyzeRun(context.Background(), "run-1", Options{Only: []int{99}})
	if !errors.Is(err, core.ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}

	_, err = coordinator.AnalyzeRun(context.Background(), "run-1", Options{Only: []int{3}})
	if !errors.Is(err, core.ErrTaskNotEligible) {
		t.Fatalf("expected ErrTaskNotEligible, got %v", err)
	}
}
