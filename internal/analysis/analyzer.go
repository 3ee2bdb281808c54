// Package analysis drives the per-use-case analysis collaborator and the
// aggregate report generation. The coordinator owns concurrency and state
// recording; analyzers only produce results and artifacts.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"
	"time"

	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// Request identifies one use case to analyze. Requests are value snapshots
// taken before workers start, so analyzers never touch shared run state.
type Request struct {
	RunID      string
	Number     int
	Name       string
	TargetFile string
	RepoName   string
	Language   string
}

// Analyzer produces a structured analysis result for one use case and
// persists the per-task artifact.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error)
}

type cliAnalyzer struct {
	paths   storage.Paths
	command string
}

// NewCLIAnalyzer creates an Analyzer that shells out to an agent CLI
// (claude by default) with a structured prompt and parses its JSON reply.
func NewCLIAnalyzer(paths storage.Paths, command string) Analyzer {
	if command == "" {
		command = "claude"
	}
	return &cliAnalyzer{paths: paths, command: command}
}

var analysisPromptTmpl = template.Must(template.New("analysis").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`# Use Case {{.Number}} Analysis

You are a documentation analysis expert evaluating how effectively a coding agent implemented a library-specific task.

## Use Case That Was Implemented
**Name:** {{.UseCase.Name}}
**Elevator Pitch:** {{.UseCase.ElevatorPitch}}
**Target Audience:** {{.UseCase.TargetAudience}}
**Complexity Level:** {{.UseCase.ComplexityLevel}}
**Real-world Scenario:** {{.UseCase.RealWorldScenario}}

**Functional Requirements:**
{{range $i, $req := .UseCase.FunctionalRequirements}}{{inc $i}}. {{$req}}
{{end}}
**User Stories:**
{{range $i, $story := .UseCase.UserStories}}{{inc $i}}. {{$story}}
{{end}}
**System Design:** {{.UseCase.SystemDesign}}
**Architecture Pattern:** {{.UseCase.ArchitecturePattern}}

## Implementation to Analyze
` + "```{{.Language}}\n{{.Implementation}}\n```" + `

## Analysis Process
1. Assess whether the implementation would execute as written, without modifying it.
2. Determine whether the real library ({{.RepoName}}) was used or mocked away, and why.
3. Score documentation quality from the implementation's structure and comments.

## Required Output
Reply with ONLY a JSON object, no surrounding prose:

` + "```json" + `
{
  "use_case_number": {{.Number}},
  "use_case_name": {{printf "%q" .UseCase.Name}},
  "code_executability": {
    "is_executable": true,
    "execution_result": "Success output or error message",
    "failure_reason": "Specific reason if failed"
  },
  "underlying_library_usage": {
    "was_used": true,
    "was_mocked": false,
    "mocking_reason": "Why mocking was chosen if applicable"
  },
  "quality_assessment": {
    "completeness_score": "0-10 with reasoning",
    "clarity_score": "0-10 with reasoning",
    "accuracy_score": "0-10 with reasoning",
    "overall_score": "0-10 overall assessment",
    "agent_readiness": "ready|needs_improvement|not_ready"
  },
  "documentation_gaps": ["specific gaps found"],
  "recommendations": [
    {
      "priority": "critical|high|medium|low",
      "category": "missing_info|unclear_explanation|poor_examples|structure",
      "issue": "Specific problem identified",
      "recommendation": "Specific improvement needed"
    }
  ]
}
` + "```" + `
`))

type promptData struct {
	Number         int
	UseCase        models.UseCase
	Implementation string
	RepoName       string
	Language       string
}

// Analyze reads the use case definition and implementation artifact, asks
// the agent CLI for a structured verdict, and writes the analysis artifact
// next to the implementation.
func (a *cliAnalyzer) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	uc, err := a.loadUseCase(req.RunID, req.Number)
	if err != nil {
		return nil, fmt.Errorf("analyzing use case %d: %w", req.Number, err)
	}

	implPath := a.paths.ImplementationPath(req.RunID, req.Number, req.TargetFile)
	impl, err := os.ReadFile(implPath)
	if err != nil {
		return nil, fmt.Errorf("analyzing use case %d: reading implementation: %w", req.Number, err)
	}

	prompt, err := renderAnalysisPrompt(promptData{
		Number:         req.Number,
		UseCase:        *uc,
		Implementation: string(impl),
		RepoName:       req.RepoName,
		Language:       req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing use case %d: %w", req.Number, err)
	}

	cmd := exec.CommandContext(ctx, a.command, "-p", prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("analyzing use case %d: running %s: %v: %s",
			req.Number, a.command, err, strings.TrimSpace(stderr.String()))
	}

	result, err := parseAnalysisOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("analyzing use case %d: %w", req.Number, err)
	}
	result.UseCaseNumber = req.Number
	result.UseCaseName = uc.Name
	result.AnalyzedAt = time.Now().UTC()

	if err := a.writeArtifact(req.RunID, req.Number, result); err != nil {
		return nil, fmt.Errorf("analyzing use case %d: %w", req.Number, err)
	}
	return result, nil
}

func (a *cliAnalyzer) loadUseCase(runID string, number int) (*models.UseCase, error) {
	data, err := os.ReadFile(a.paths.UseCasesPath(runID))
	if err != nil {
		return nil, fmt.Errorf("reading use cases: %w", err)
	}
	var extraction models.ExtractionResult
	if err := json.Unmarshal(data, &extraction); err != nil {
		return nil, fmt.Errorf("parsing use cases: %w", err)
	}
	if number < 1 || number > len(extraction.UseCases) {
		return nil, fmt.Errorf("use case %d not in extraction output", number)
	}
	return &extraction.UseCases[number-1], nil
}

func (a *cliAnalyzer) writeArtifact(runID string, number int, result *models.AnalysisResult) error {
	dir := a.paths.UseCaseDir(runID, number)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling analysis artifact: %w", err)
	}
	if err := os.WriteFile(a.paths.AnalysisPath(runID, number), data, 0o644); err != nil {
		return fmt.Errorf("writing analysis artifact: %w", err)
	}
	return nil
}

func renderAnalysisPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering analysis prompt: %w", err)
	}
	return buf.String(), nil
}

// parseAnalysisOutput extracts the JSON object from agent output that may
// wrap it in code fences or explanation text.
func parseAnalysisOutput(out []byte) (*models.AnalysisResult, error) {
	start := bytes.IndexByte(out, '{')
	end := bytes.LastIndexByte(out, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in agent output")
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(out[start:end+1], &result); err != nil {
		return nil, fmt.Errorf("parsing agent output: %w", err)
	}
	return &result, nil
}
