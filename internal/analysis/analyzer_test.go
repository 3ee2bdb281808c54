package analysis

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

func TestParseAnalysisOutput_PlainJSON(t *testing.T) {
	out := []byte(`{"use_case_number": 3, "code_executability": {"is_executable": true}}`)

	result, err := parseAnalysisOutput(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UseCaseNumber != 3 {
		t.Errorf("expected use case 3, got %d", result.UseCaseNumber)
	}
	if !result.CodeExecutability.IsExecutable {
		t.Error("expected executable")
	}
}

func TestParseAnalysisOutput_FencedJSON(t *testing.T) {
	out := []byte("Here is my analysis:\n```json\n{\"use_case_number\": 1, \"underlying_library_usage\": {\"was_mocked\": true}}\n```\nDone.")

	result, err := parseAnalysisOutput(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.LibraryUsage.WasMocked {
		t.Error("expected mocked library usage")
	}
}

func TestParseAnalysisOutput_NoJSON(t *testing.T) {
	if _, err := parseAnalysisOutput([]byte("the agent refused to answer")); err == nil {
		t.Fatal("expected error for output without JSON")
	}
}

func TestRenderAnalysisPrompt(t *testing.T) {
	prompt, err := renderAnalysisPrompt(promptData{
		Number: 2,
		UseCase: models.UseCase{
			Name:                   "Probe a list of hosts",
			ElevatorPitch:          "Check liveness of many hosts at once",
			TargetAudience:         "SRE teams",
			FunctionalRequirements: []string{"accept a host list", "emit JSON lines"},
			UserStories:            []string{"as an operator I probe hosts"},
			SystemDesign:           "single binary",
			ArchitecturePattern:    "pipeline",
			ComplexityLevel:        "intermediate",
			RealWorldScenario:      "fleet health checks",
		},
		Implementation: "import httpx\nprint('ok')",
		RepoName:       "httpx",
		Language:       "python",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Use Case 2 Analysis",
		"Probe a list of hosts",
		"1. accept a host list",
		"2. emit JSON lines",
		"import httpx",
		"```python",
		`"use_case_number": 2`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestCLIAnalyzer_LoadUseCase(t *testing.T) {
	root := t.TempDir()
	paths := storage.NewPaths(root)
	if err := os.MkdirAll(paths.DataDir("run-1"), 0o755); err != nil {
		t.Fatal(err)
	}

	extraction := models.ExtractionResult{
		TotalFound: 2,
		UseCases: []models.UseCase{
			{Name: "first", TargetFile: "solution.py"},
			{Name: "second", TargetFile: "solution.py"},
		},
	}
	data, err := json.Marshal(extraction)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.UseCasesPath("run-1"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	analyzer := NewCLIAnalyzer(paths, "claude").(*cliAnalyzer)

	uc, err := analyzer.loadUseCase("run-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uc.Name != "second" {
		t.Errorf("expected second use case, got %s", uc.Name)
	}

	if _, err := analyzer.loadUseCase("run-1", 3); err == nil {
		t.Fatal("expected error for out-of-range use case")
	}
}
