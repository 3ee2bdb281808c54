// Package mcp provides an MCP (Model Context Protocol) server that exposes
// stackbench run state as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// Server wraps stackbench services and exposes them as MCP tools.
type Server struct {
	server   *gomcp.Server
	runs     core.RunManager
	registry storage.Registry
	paths    storage.Paths
}

// NewServer creates a new MCP server with the given service dependencies.
func NewServer(runs core.RunManager, registry storage.Registry, paths storage.Paths, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		runs:     runs,
		registry: registry,
		paths:    paths,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "stackbench", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listRunsInput struct {
	Phase string `json:"phase,omitempty" jsonschema:"filter runs by lifecycle phase (created, cloned, extracted, execution, analysis_individual, analysis_overall, completed)"`
}

type runSummaryOutput struct {
	ID            string `json:"id"`
	RepoName      string `json:"repo_name"`
	RepoURL       string `json:"repo_url,omitempty"`
	AgentType     string `json:"agent_type,omitempty"`
	Phase         string `json:"phase"`
	TaskCount     int    `json:"use_case_count"`
	ExecutedCount int    `json:"executed_count"`
	AnalyzedCount int    `json:"analyzed_count"`
	HasErrors     bool   `json:"has_errors"`
	Corrupt       bool   `json:"corrupt,omitempty"`
	Created       string `json:"created,omitempty"`
	Updated       string `json:"updated,omitempty"`
}

type listRunsOutput struct {
	Runs  []runSummaryOutput `json:"runs"`
	Count int                `json:"count"`
}

type getRunInput struct {
	RunID string `json:"run_id" jsonschema:"required,the run identifier (a UUID printed by stackbench clone)"`
}

type useCaseOutput struct {
	Number          int    `json:"number"`
	Name            string `json:"name"`
	TargetFile      string `json:"target_file"`
	ExecutionStatus string `json:"execution_status"`
	AnalysisStatus  string `json:"analysis_status"`
	Eligible        bool   `json:"eligible_for_analysis"`
}

type getRunOutput struct {
	ID        string          `json:"id"`
	RepoName  string          `json:"repo_name"`
	RepoURL   string          `json:"repo_url"`
	AgentType string          `json:"agent_type"`
	Language  string          `json:"language,omitempty"`
	Phase     string          `json:"phase"`
	UseCases  []useCaseOutput `json:"use_cases"`
	Created   string          `json:"created"`
	Updated   string          `json:"updated"`
}

type getReportInput struct {
	RunID string `json:"run_id" jsonschema:"required,the run identifier"`
}

type getReportOutput struct {
	RunID           string  `json:"run_id"`
	PassFailStatus  string  `json:"pass_fail_status"`
	SuccessRate     float64 `json:"success_rate"`
	TotalUseCases   int     `json:"total_use_cases"`
	SuccessfulCases int     `json:"successful_cases"`
	FailedCases     int     `json:"failed_cases"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_runs",
		Description: "List benchmark runs with an optional phase filter. Returns per-run use case counts and progress.",
	}, s.handleListRuns)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_run",
		Description: "Get full details of a benchmark run, including per-use-case execution and analysis state.",
	}, s.handleGetRun)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_report",
		Description: "Get the aggregate pass/fail report of a run after analysis has completed.",
	}, s.handleGetReport)
}

// --- Tool handlers ---

func (s *Server) handleListRuns(_ context.Context, _ *gomcp.CallToolRequest, input listRunsInput) (*gomcp.CallToolResult, listRunsOutput, error) {
	summaries, err := s.registry.List()
	if err != nil {
		return errorResult(fmt.Sprintf("listing runs: %s", err)), listRunsOutput{}, nil
	}

	out := listRunsOutput{Runs: make([]runSummaryOutput, 0, len(summaries))}
	for _, sum := range summaries {
		if input.Phase != "" && string(sum.Phase) != input.Phase {
			continue
		}
		out.Runs = append(out.Runs, summaryToOutput(sum))
	}
	out.Count = len(out.Runs)

	return nil, out, nil
}

func (s *Server) handleGetRun(_ context.Context, _ *gomcp.CallToolRequest, input getRunInput) (*gomcp.CallToolResult, getRunOutput, error) {
	if input.RunID == "" {
		return errorResult("run_id is required"), getRunOutput{}, nil
	}

	run, err := s.runs.Get(input.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting run %s: %s", input.RunID, err)), getRunOutput{}, nil
	}

	out := getRunOutput{
		ID:        run.ID,
		RepoName:  run.RepoName,
		RepoURL:   run.Config.RepoURL,
		AgentType: run.Config.AgentType,
		Language:  run.Config.Language,
		Phase:     string(run.Phase),
		UseCases:  make([]useCaseOutput, len(run.Tasks)),
		Created:   run.CreatedAt.Format(time.RFC3339),
		Updated:   run.UpdatedAt.Format(time.RFC3339),
	}
	for i, task := range run.Tasks {
		out.UseCases[i] = useCaseOutput{
			Number:          task.Number,
			Name:            task.Name,
			TargetFile:      task.TargetFile,
			ExecutionStatus: string(task.ExecutionStatus),
			AnalysisStatus:  string(task.AnalysisStatus),
			Eligible:        task.Eligible(),
		}
	}

	return nil, out, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *gomcp.CallToolRequest, input getReportInput) (*gomcp.CallToolResult, getReportOutput, error) {
	if input.RunID == "" {
		return errorResult("run_id is required"), getReportOutput{}, nil
	}

	data, err := os.ReadFile(s.paths.ResultsJSONPath(input.RunID))
	if err != nil {
		return errorResult(fmt.Sprintf("reading report for run %s: %s (has the run reached the report phase?)", input.RunID, err)), getReportOutput{}, nil
	}
	var report models.OverallReport
	if err := json.Unmarshal(data, &report); err != nil {
		return errorResult(fmt.Sprintf("parsing report for run %s: %s", input.RunID, err)), getReportOutput{}, nil
	}

	out := getReportOutput{
		RunID:           report.RunID,
		PassFailStatus:  report.PassFailStatus,
		SuccessRate:     report.SuccessRate,
		TotalUseCases:   report.TotalUseCases,
		SuccessfulCases: report.SuccessfulCases,
		FailedCases:     report.FailedCases,
	}
	return nil, out, nil
}

// --- Helpers ---

func summaryToOutput(sum storage.RunSummary) runSummaryOutput {
	out := runSummaryOutput{
		ID:            sum.ID,
		RepoName:      sum.RepoName,
		RepoURL:       sum.RepoURL,
		AgentType:     sum.AgentType,
		Phase:         string(sum.Phase),
		TaskCount:     sum.TaskCount,
		ExecutedCount: sum.ExecutedCount,
		AnalyzedCount: sum.AnalyzedCount,
		HasErrors:     sum.HasErrors,
		Corrupt:       sum.Degraded,
	}
	if sum.Degraded {
		out.Phase = "corrupt"
		return out
	}
	out.Created = sum.CreatedAt.Format(time.RFC3339)
	out.Updated = sum.UpdatedAt.Format(time.RFC3339)
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
