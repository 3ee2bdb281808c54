package cli

import (
	"errors"
	"os"
	"testing"

	"github.com/drapaimern/stackbench/internal/analysis"
	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/pkg/models"
)

func setupReportCLI(t *testing.T) {
	t.Helper()
	setupCLI(t)

	origReports := Reports
	t.Cleanup(func() { Reports = origReports })
	Reports = analysis.NewReportGenerator(Store.Paths())
}

func TestReportCmd_RejectsWrongPhase(t *testing.T) {
	setupReportCLI(t)
	// Still in the extracted phase: no execution, no analysis.
	run := seedExtractedRun(t, 2)

	err := reportCmd.RunE(reportCmd, []string{run.ID})
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// The rejected command must not leave report artifacts behind.
	if _, statErr := os.Stat(Store.Paths().ResultsJSONPath(run.ID)); !os.IsNotExist(statErr) {
		t.Errorf("results.json written despite rejected report: %v", statErr)
	}
	if _, statErr := os.Stat(Store.Paths().ResultsMarkdownPath(run.ID)); !os.IsNotExist(statErr) {
		t.Errorf("results.md written despite rejected report: %v", statErr)
	}

	loaded, err := Runs.Get(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Phase != models.PhaseExtracted {
		t.Errorf("rejected report changed phase to %s", loaded.Phase)
	}
}
