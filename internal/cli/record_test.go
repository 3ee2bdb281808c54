package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// setupCLI wires the package-level service vars against a temp directory and
// restores the previous wiring when the test ends.
func setupCLI(t *testing.T) {
	t.Helper()

	origStore, origRegistry, origRuns, origConfig := Store, Registry, Runs, Config
	t.Cleanup(func() {
		Store, Registry, Runs, Config = origStore, origRegistry, origRuns, origConfig
	})

	Store = storage.NewRunStore(t.TempDir())
	Registry = storage.NewRegistry(Store)
	Runs = core.NewRunManager(Store)
	Config = core.DefaultConfig()
}

// seedExtractedRun creates a run with numCases pending use cases.
func seedExtractedRun(t *testing.T, numCases int) *models.Run {
	t.Helper()

	run, err := Runs.Create(models.RunConfig{
		RepoURL:     "https://github.com/encode/httpx",
		AgentType:   "cursor",
		Language:    "python",
		NumUseCases: numCases,
	})
	if err != nil {
		t.Fatalf("creating run: %v", err)
	}
	if _, err := Runs.MarkCloned(run.ID); err != nil {
		t.Fatalf("marking cloned: %v", err)
	}
	cases := make([]models.UseCase, numCases)
	for i := range cases {
		cases[i] = models.UseCase{Name: "use case", TargetFile: "solution.py"}
	}
	run, err = Runs.SetUseCases(run.ID, cases)
	if err != nil {
		t.Fatalf("setting use cases: %v", err)
	}
	return run
}

// writeImplementation creates the implementation artifact for a use case.
func writeImplementation(t *testing.T, runID string, number int, targetFile string) {
	t.Helper()

	path := Store.Paths().ImplementationPath(runID, number, targetFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating use case dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatalf("writing implementation: %v", err)
	}
}

func TestRecordCmd_NilRunManager(t *testing.T) {
	orig := Runs
	defer func() { Runs = orig }()
	Runs = nil

	err := recordCmd.RunE(recordCmd, []string{"some-run"})
	if err == nil {
		t.Fatal("expected error when Runs is nil")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecordCmd_InvalidOutcome(t *testing.T) {
	setupCLI(t)
	run := seedExtractedRun(t, 1)

	recordUseCase = 1
	recordOutcome = "done"
	defer func() { recordOutcome = "executed" }()

	err := recordCmd.RunE(recordCmd, []string{run.ID})
	if err == nil {
		t.Fatal("expected error for invalid outcome")
	}
	if !strings.Contains(err.Error(), "invalid outcome") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecordCmd_UnknownUseCase(t *testing.T) {
	setupCLI(t)
	run := seedExtractedRun(t, 1)

	recordUseCase = 9
	recordOutcome = "executed"

	err := recordCmd.RunE(recordCmd, []string{run.ID})
	if err == nil {
		t.Fatal("expected error for unknown use case")
	}
}

func TestRecordCmd_ExecutedWithImplementation(t *testing.T) {
	setupCLI(t)
	run := seedExtractedRun(t, 2)
	writeImplementation(t, run.ID, 1, "solution.py")

	recordUseCase = 1
	recordOutcome = "executed"

	if err := recordCmd.RunE(recordCmd, []string{run.ID}); err != nil {
		t.Fatalf("record: %v", err)
	}

	loaded, err := Runs.Get(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	task := loaded.Task(1)
	if task.ExecutionStatus != models.ExecutionExecuted {
		t.Errorf("expected executed, got %s", task.ExecutionStatus)
	}
	if task.ExecutionMethod != models.MethodIDEManual {
		t.Errorf("expected ide_manual, got %s", task.ExecutionMethod)
	}
	if !task.ImplementationExists {
		t.Error("implementation presence not recorded")
	}
}

func TestRecordCmd_ExecutedWithoutImplementation(t *testing.T) {
	setupCLI(t)
	run := seedExtractedRun(t, 1)

	recordUseCase = 1
	recordOutcome = "executed"

	// Succeeds with a warning; the task is executed but not eligible.
	if err := recordCmd.RunE(recordCmd, []string{run.ID}); err != nil {
		t.Fatalf("record: %v", err)
	}

	loaded, err := Runs.Get(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	task := loaded.Task(1)
	if task.ImplementationExists {
		t.Error("implementation recorded as present but file is missing")
	}
	if task.Eligible() {
		t.Error("task without implementation must not be analysis-eligible")
	}
}

func TestRecordCmd_SkippedAdvancesPhase(t *testing.T) {
	setupCLI(t)
	run := seedExtractedRun(t, 1)

	recordUseCase = 1
	recordOutcome = "skipped"
	defer func() { recordOutcome = "executed" }()

	if err := recordCmd.RunE(recordCmd, []string{run.ID}); err != nil {
		t.Fatalf("record: %v", err)
	}

	loaded, err := Runs.Get(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Phase != models.PhaseExecution {
		t.Errorf("expected phase execution after last outcome, got %s", loaded.Phase)
	}
}
