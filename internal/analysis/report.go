package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// passThreshold is the success-rate fraction at or above which a run passes.
const passThreshold = 0.5

// ReportGenerator aggregates the individual analysis artifacts into the
// results.json and results.md pair. Aggregation is deterministic: the same
// artifacts always produce the same report.
type ReportGenerator struct {
	paths storage.Paths
}

// NewReportGenerator creates a ReportGenerator over the given runs root.
func NewReportGenerator(paths storage.Paths) *ReportGenerator {
	return &ReportGenerator{paths: paths}
}

// Generate builds the aggregate report from the run's analysis artifacts and
// writes both report files. The run must have at least one analysis artifact.
func (g *ReportGenerator) Generate(run *models.Run) (*models.OverallReport, error) {
	results, err := g.loadResults(run)
	if err != nil {
		return nil, fmt.Errorf("generating report for run %s: %w", run.ID, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("generating report for run %s: no analysis results found", run.ID)
	}

	report := BuildReport(run, results)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("generating report for run %s: marshaling: %w", run.ID, err)
	}
	if err := os.WriteFile(g.paths.ResultsJSONPath(run.ID), data, 0o644); err != nil {
		return nil, fmt.Errorf("generating report for run %s: writing results.json: %w", run.ID, err)
	}

	markdown, err := renderMarkdownReport(run, report)
	if err != nil {
		return nil, fmt.Errorf("generating report for run %s: %w", run.ID, err)
	}
	if err := os.WriteFile(g.paths.ResultsMarkdownPath(run.ID), []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("generating report for run %s: writing results.md: %w", run.ID, err)
	}
	return report, nil
}

// loadResults reads every per-task analysis artifact that exists. Artifacts
// it cannot parse are skipped; the task still appears in the report as a
// failure row via its snapshot state.
func (g *ReportGenerator) loadResults(run *models.Run) (map[int]*models.AnalysisResult, error) {
	results := make(map[int]*models.AnalysisResult)
	for i := range run.Tasks {
		number := run.Tasks[i].Number
		data, err := os.ReadFile(g.paths.AnalysisPath(run.ID, number))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading analysis artifact %d: %w", number, err)
		}
		var result models.AnalysisResult
		if err := json.Unmarshal(data, &result); err != nil {
			continue
		}
		results[number] = &result
	}
	return results, nil
}

// BuildReport computes the aggregate report from the run snapshot and the
// analysis results keyed by use case number.
func BuildReport(run *models.Run, results map[int]*models.AnalysisResult) *models.OverallReport {
	report := &models.OverallReport{
		RunID:         run.ID,
		RepoURL:       run.Config.RepoURL,
		AgentType:     run.Config.AgentType,
		TotalUseCases: len(run.Tasks),
		GeneratedAt:   time.Now().UTC(),
	}

	patterns := make(map[string]int)
	for i := range run.Tasks {
		task := &run.Tasks[i]
		outcome := models.UseCaseOutcome{
			Number:   task.Number,
			Name:     task.Name,
			Executed: task.ExecutionStatus == models.ExecutionExecuted,
		}

		if result, ok := results[task.Number]; ok {
			outcome.IsExecutable = result.CodeExecutability.IsExecutable
			outcome.OverallScore = result.Quality.OverallScore
			if !result.CodeExecutability.IsExecutable {
				outcome.Failure = result.CodeExecutability.FailureReason
			}
			if failure := classifyFailure(result); failure != "" {
				patterns[failure]++
			}
			report.Recommendations = append(report.Recommendations, topRecommendations(result)...)
		} else if !outcome.Executed {
			outcome.Failure = string(task.ExecutionStatus)
			patterns["execution "+string(task.ExecutionStatus)]++
		} else {
			outcome.Failure = "analysis missing"
			patterns["analysis missing"]++
		}

		if outcome.IsExecutable {
			report.SuccessfulCases++
		} else {
			report.FailedCases++
		}
		report.UseCases = append(report.UseCases, outcome)
	}

	if report.TotalUseCases > 0 {
		report.SuccessRate = float64(report.SuccessfulCases) / float64(report.TotalUseCases)
	}
	report.PassFailStatus = "FAIL"
	if report.SuccessRate >= passThreshold {
		report.PassFailStatus = "PASS"
	}

	for pattern, frequency := range patterns {
		report.FailurePatterns = append(report.FailurePatterns, models.FailurePattern{
			Pattern:   pattern,
			Frequency: frequency,
		})
	}
	sort.Slice(report.FailurePatterns, func(i, j int) bool {
		a, b := report.FailurePatterns[i], report.FailurePatterns[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Pattern < b.Pattern
	})
	return report
}

func classifyFailure(result *models.AnalysisResult) string {
	switch {
	case result.LibraryUsage.WasMocked:
		return "library mocked instead of used"
	case !result.CodeExecutability.IsExecutable:
		return "implementation not executable"
	case !result.LibraryUsage.WasUsed:
		return "library not exercised"
	}
	return ""
}

// topRecommendations keeps only critical and high priority suggestions so
// the aggregate report stays readable.
func topRecommendations(result *models.AnalysisResult) []models.Recommendation {
	var top []models.Recommendation
	for _, rec := range result.Recommendations {
		if rec.Priority == "critical" || rec.Priority == "high" {
			top = append(top, rec)
		}
	}
	return top
}

var markdownReportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(rate float64) string { return fmt.Sprintf("%.1f%%", rate*100) },
	"mark": func(ok bool) string {
		if ok {
			return "PASS"
		}
		return "FAIL"
	},
}).Parse(`# {{.RepoName}} Benchmark Report

**Pass/Fail Status:** {{.Report.PassFailStatus}}
**Success Rate:** {{.Report.SuccessfulCases}}/{{.Report.TotalUseCases}} use cases successful ({{pct .Report.SuccessRate}})
**Agent:** {{.Report.AgentType}}
**Repository:** {{.Report.RepoURL}}

## Use Case Results

| # | Name | Executed | Executable | Score | Failure |
|---|------|----------|------------|-------|---------|
{{- range .Report.UseCases}}
| {{.Number}} | {{.Name}} | {{mark .Executed}} | {{mark .IsExecutable}} | {{if .OverallScore}}{{.OverallScore}}{{else}}-{{end}} | {{if .Failure}}{{.Failure}}{{else}}-{{end}} |
{{- end}}
{{- if .Report.FailurePatterns}}

## Failure Patterns
{{range .Report.FailurePatterns}}
- {{.Pattern}} ({{.Frequency}} use case{{if gt .Frequency 1}}s{{end}})
{{- end}}
{{- end}}
{{- if .Report.Recommendations}}

## Recommendations
{{range .Report.Recommendations}}
- **{{.Priority}}** ({{.Category}}): {{.Issue}} {{.Recommendation}}
{{- end}}
{{- end}}

Generated at {{.Report.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}.
`))

func renderMarkdownReport(run *models.Run, report *models.OverallReport) (string, error) {
	var buf bytes.Buffer
	err := markdownReportTmpl.Execute(&buf, struct {
		RepoName string
		Report   *models.OverallReport
	}{RepoName: run.RepoName, Report: report})
	if err != nil {
		return "", fmt.Errorf("rendering markdown report: %w", err)
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}
