package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// extractWorkers bounds concurrent extraction model calls.
const extractWorkers = 4

// maxDocumentBytes truncates oversized documents before they reach the
// extraction model.
const maxDocumentBytes = 32 * 1024

// Document is one documentation file prepared for extraction.
type Document struct {
	Path    string
	RelPath string
	Content string
}

// DocumentExtractor turns one documentation file into use case candidates.
type DocumentExtractor interface {
	ExtractFromDocument(ctx context.Context, doc Document, language string) ([]models.UseCase, error)
}

// Extractor walks the cloned repository's documentation and collects use
// cases until the run's configured target is reached. Documents are
// processed largest first, in parallel, and processing stops early once
// enough use cases have been found.
type Extractor struct {
	paths storage.Paths
	docs  DocumentExtractor
}

// NewExtractor creates an Extractor over the given runs root.
func NewExtractor(paths storage.Paths, docs DocumentExtractor) *Extractor {
	return &Extractor{paths: paths, docs: docs}
}

// Extract produces the run's use cases and writes them to use_cases.json.
// A repository without usable documentation yields a result with zero use
// cases and an explanatory error string, not a Go error; the caller decides
// whether that fails the run.
func (e *Extractor) Extract(ctx context.Context, run *models.Run) (*models.ExtractionResult, error) {
	start := time.Now()
	repoDir := e.paths.RepoDir(run.ID)

	files, err := FindMarkdownFiles(repoDir, run.Config.IncludeFolders)
	if err != nil {
		return nil, fmt.Errorf("extracting use cases for run %s: %w", run.ID, err)
	}

	result := &models.ExtractionResult{}
	if len(files) == 0 {
		result.Errors = append(result.Errors, "no markdown files found")
		result.ProcessingSeconds = time.Since(start).Seconds()
		return result, e.save(run.ID, result)
	}

	docs, loadErrs := loadDocuments(repoDir, files)
	result.Errors = append(result.Errors, loadErrs...)
	if len(docs) == 0 {
		result.Errors = append(result.Errors, "no valid documents loaded")
		result.ProcessingSeconds = time.Since(start).Seconds()
		return result, e.save(run.ID, result)
	}

	// Larger documents first: they tend to be the comprehensive guides.
	sort.Slice(docs, func(i, j int) bool { return len(docs[i].Content) > len(docs[j].Content) })

	target := run.Config.NumUseCases
	language := run.Config.Language
	if language == "" {
		language = "python"
	}

	var mu sync.Mutex
	var collected []models.UseCase
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(extractWorkers)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			mu.Lock()
			enough := len(collected) >= target
			mu.Unlock()
			if enough || ctx.Err() != nil {
				return nil
			}

			cases, err := e.docs.ExtractFromDocument(ctx, doc, language)

			mu.Lock()
			defer mu.Unlock()
			result.DocumentsProcessed++
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("processing %s: %v", doc.RelPath, err))
				return nil
			}
			if len(cases) > 0 {
				result.DocumentsWithCases++
				for i := range cases {
					if len(cases[i].SourceDocuments) == 0 {
						cases[i].SourceDocuments = []string{doc.RelPath}
					}
				}
				collected = append(collected, cases...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting use cases for run %s: %w", run.ID, err)
	}

	result.TotalFound = len(collected)
	if len(collected) > target {
		collected = collected[:target]
	}
	result.UseCases = collected
	result.ProcessingSeconds = time.Since(start).Seconds()

	if err := e.save(run.ID, result); err != nil {
		return nil, fmt.Errorf("extracting use cases for run %s: %w", run.ID, err)
	}
	return result, nil
}

func (e *Extractor) save(runID string, result *models.ExtractionResult) error {
	if err := os.MkdirAll(e.paths.DataDir(runID), 0o755); err != nil {
		return fmt.Errorf("saving use cases: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("saving use cases: %w", err)
	}
	if err := os.WriteFile(e.paths.UseCasesPath(runID), data, 0o644); err != nil {
		return fmt.Errorf("saving use cases: %w", err)
	}
	return nil
}

func loadDocuments(repoDir string, files []string) ([]Document, []string) {
	var docs []Document
	var errs []string
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("reading %s: %v", path, err))
			continue
		}
		if len(bytes.TrimSpace(content)) == 0 {
			continue
		}
		if len(content) > maxDocumentBytes {
			content = content[:maxDocumentBytes]
		}
		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, Document{Path: path, RelPath: rel, Content: string(content)})
	}
	return docs, errs
}

// cliDocumentExtractor asks an LLM CLI to propose use cases for a document.
type cliDocumentExtractor struct {
	command string
	model   string
}

// NewCLIDocumentExtractor creates a DocumentExtractor shelling out to the
// given command ("claude" when empty), passing the model when set.
func NewCLIDocumentExtractor(command, model string) DocumentExtractor {
	if command == "" {
		command = "claude"
	}
	return &cliDocumentExtractor{command: command, model: model}
}

var extractPromptTmpl = template.Must(template.New("extract").Parse(`# Use Case Extraction

You are preparing benchmark tasks for coding agents from library documentation.

Read the documentation below and propose at most one self-contained use case a
developer would realistically build with this library in {{.Language}}.

## Documentation ({{.RelPath}})
{{.Content}}

## Required Output
Reply with ONLY a JSON array. Each element:

` + "```json" + `
[
  {
    "name": "Short descriptive name",
    "elevator_pitch": "One-paragraph product pitch",
    "target_audience": "Who would build this",
    "functional_requirements": ["concrete requirement"],
    "user_stories": ["as a ... I want ... so that ..."],
    "system_design": "Brief technical approach",
    "architecture_pattern": "e.g. pipeline, client-server",
    "complexity_level": "beginner|intermediate|advanced",
    "real_world_scenario": "Where this would be used",
    "source_documents": ["{{.RelPath}}"],
    "target_file": "solution.py"
  }
]
` + "```" + `

Return an empty array if the document contains nothing implementable.
`))

func (x *cliDocumentExtractor) ExtractFromDocument(ctx context.Context, doc Document, language string) ([]models.UseCase, error) {
	var buf bytes.Buffer
	err := extractPromptTmpl.Execute(&buf, struct {
		RelPath  string
		Content  string
		Language string
	}{RelPath: doc.RelPath, Content: doc.Content, Language: language})
	if err != nil {
		return nil, fmt.Errorf("rendering extraction prompt: %w", err)
	}

	args := []string{"-p", buf.String()}
	if x.model != "" {
		args = append(args, "--model", x.model)
	}
	cmd := exec.CommandContext(ctx, x.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %v: %s", x.command, err, strings.TrimSpace(stderr.String()))
	}
	return parseUseCases(stdout.Bytes())
}

// parseUseCases extracts the JSON array from model output that may wrap it
// in code fences or prose.
func parseUseCases(out []byte) ([]models.UseCase, error) {
	start := bytes.IndexByte(out, '[')
	end := bytes.LastIndexByte(out, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in model output")
	}
	var cases []models.UseCase
	if err := json.Unmarshal(out[start:end+1], &cases); err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}
	return cases, nil
}
