package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// Agent is one coding agent the benchmark can hand use cases to. IDE agents
// only format prompts for a human to paste; CLI agents also implement
// AutomatedAgent.
type Agent interface {
	Name() string
	Method() models.ExecutionMethod
	FormatPrompt(run *models.Run, number int) (string, error)
}

// AutomatedAgent executes a use case end to end without human involvement.
type AutomatedAgent interface {
	Agent
	Execute(ctx context.Context, run *models.Run, number int) error
}

// NewAgent returns the agent registered under the given name. The command
// is only used by CLI agents.
func NewAgent(name string, paths storage.Paths, command string) (Agent, error) {
	base := agentBase{paths: paths}
	switch name {
	case "cursor":
		return &cursorAgent{agentBase: base}, nil
	case "claude":
		if command == "" {
			command = "claude"
		}
		return &claudeAgent{agentBase: base, command: command}, nil
	}
	return nil, fmt.Errorf("unknown agent type %q", name)
}

// ImplementationExists reports whether the use case's implementation
// artifact is present on disk.
func ImplementationExists(paths storage.Paths, runID string, number int, targetFile string) bool {
	info, err := os.Stat(paths.ImplementationPath(runID, number, targetFile))
	return err == nil && !info.IsDir()
}

type agentBase struct {
	paths storage.Paths
}

func (b *agentBase) loadUseCase(runID string, number int) (*models.UseCase, error) {
	data, err := os.ReadFile(b.paths.UseCasesPath(runID))
	if err != nil {
		return nil, fmt.Errorf("reading use cases: %w", err)
	}
	var extraction models.ExtractionResult
	if err := json.Unmarshal(data, &extraction); err != nil {
		return nil, fmt.Errorf("parsing use cases: %w", err)
	}
	if number < 1 || number > len(extraction.UseCases) {
		return nil, fmt.Errorf("use case %d out of range, have 1-%d", number, len(extraction.UseCases))
	}
	return &extraction.UseCases[number-1], nil
}

var implementationPromptTmpl = template.Must(template.New("implement").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`# {{.UseCase.Name}}

## Use Case Details

**Elevator Pitch:** {{.UseCase.ElevatorPitch}}

**Target Audience:** {{.UseCase.TargetAudience}}
**Complexity Level:** {{.UseCase.ComplexityLevel}}
**Real-world Scenario:** {{.UseCase.RealWorldScenario}}

### Functional Requirements
{{range $i, $req := .UseCase.FunctionalRequirements}}{{inc $i}}. {{$req}}
{{end}}
### User Stories
{{range $i, $story := .UseCase.UserStories}}{{inc $i}}. {{$story}}
{{end}}
### System Design
{{.UseCase.SystemDesign}}

### Architecture Pattern
{{.UseCase.ArchitecturePattern}}

## Instructions

Implement the use case described above.

**Documentation Location:** The repository documentation is located at ` + "`{{.RepoDir}}`" + `.

**Use Documentation for Help:** Review the documentation in the repository to understand the library's APIs, patterns, and best practices.

**File Creation:** Create a single entry file called ` + "`{{.UseCase.TargetFile}}`" + `.

**Target Directory:** Create the directory ` + "`{{.TargetDir}}`" + ` if it doesn't exist. Every file you create belongs in this directory.

**Documentation Tracking:** At the top of your solution file, include a comment block listing which documentation files you consulted and your implementation notes.

### Implementation Requirements:
- Meet all functional requirements listed above
- Follow the specified architecture pattern
- Use the real library, not mocks, wherever possible
- Include proper error handling and comments explaining your approach

---
**Repository Path:** ` + "`{{.RepoDir}}`" + `
**Main File:** ` + "`{{.MainFile}}`" + `
`))

func (b *agentBase) renderPrompt(run *models.Run, number int) (string, error) {
	uc, err := b.loadUseCase(run.ID, number)
	if err != nil {
		return "", fmt.Errorf("formatting prompt for use case %d: %w", number, err)
	}

	targetDir := b.paths.UseCaseDir(run.ID, number)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("formatting prompt for use case %d: %w", number, err)
	}

	var buf bytes.Buffer
	err = implementationPromptTmpl.Execute(&buf, struct {
		UseCase   *models.UseCase
		RepoDir   string
		TargetDir string
		MainFile  string
	}{
		UseCase:   uc,
		RepoDir:   b.paths.RepoDir(run.ID),
		TargetDir: targetDir,
		MainFile:  b.paths.ImplementationPath(run.ID, number, uc.TargetFile),
	})
	if err != nil {
		return "", fmt.Errorf("formatting prompt for use case %d: %w", number, err)
	}
	return buf.String(), nil
}

// cursorAgent targets manual execution in the Cursor IDE. The operator
// pastes the prompt, runs the agent, and records the outcome afterwards.
type cursorAgent struct {
	agentBase
}

func (a *cursorAgent) Name() string                   { return "cursor" }
func (a *cursorAgent) Method() models.ExecutionMethod { return models.MethodIDEManual }

func (a *cursorAgent) FormatPrompt(run *models.Run, number int) (string, error) {
	return a.renderPrompt(run, number)
}

// claudeAgent executes use cases through the claude CLI.
type claudeAgent struct {
	agentBase
	command string
}

func (a *claudeAgent) Name() string                   { return "claude" }
func (a *claudeAgent) Method() models.ExecutionMethod { return models.MethodCLIAutomated }

func (a *claudeAgent) FormatPrompt(run *models.Run, number int) (string, error) {
	return a.renderPrompt(run, number)
}

// Execute runs the agent CLI against the use case prompt and verifies the
// implementation artifact appeared.
func (a *claudeAgent) Execute(ctx context.Context, run *models.Run, number int) error {
	prompt, err := a.FormatPrompt(run, number)
	if err != nil {
		return fmt.Errorf("executing use case %d: %w", number, err)
	}

	cmd := exec.CommandContext(ctx, a.command, "-p", prompt)
	cmd.Dir = a.paths.UseCaseDir(run.ID, number)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("executing use case %d: running %s: %v: %s",
			number, a.command, err, strings.TrimSpace(stderr.String()))
	}

	task := run.Task(number)
	if task == nil {
		return fmt.Errorf("executing use case %d: not in run", number)
	}
	if !ImplementationExists(a.paths, run.ID, number, task.TargetFile) {
		return fmt.Errorf("executing use case %d: agent finished without writing %s", number, task.TargetFile)
	}
	return nil
}
