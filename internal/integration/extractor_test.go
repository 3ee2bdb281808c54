package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// fakeDocExtractor yields a fixed number of use cases per document.
type fakeDocExtractor struct {
	mu        sync.Mutex
	perDoc    int
	failPaths map[string]bool
	seenPaths []string
}

func (f *fakeDocExtractor) ExtractFromDocument(_ context.Context, doc Document, language string) ([]models.UseCase, error) {
	f.mu.Lock()
	f.seenPaths = append(f.seenPaths, doc.RelPath)
	shouldFail := f.failPaths[doc.RelPath]
	f.mu.Unlock()

	if shouldFail {
		return nil, fmt.Errorf("model refused")
	}

	var cases []models.UseCase
	for i := 0; i < f.perDoc; i++ {
		cases = append(cases, models.UseCase{
			Name:       fmt.Sprintf("%s case %d", doc.RelPath, i+1),
			TargetFile: "solution." + language[:2],
		})
	}
	return cases, nil
}

func extractionRun(t *testing.T, store storage.RunStore, numUseCases int, markdown map[string]string) *models.Run {
	t.Helper()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	run := &models.Run{
		ID:        "run-1",
		RepoName:  "httpx",
		Phase:     models.PhaseCloned,
		CreatedAt: now,
		UpdatedAt: now,
		Config: models.RunConfig{
			RepoURL:     "https://github.com/projectdiscovery/httpx",
			AgentType:   "cursor",
			Language:    "python",
			NumUseCases: numUseCases,
		},
	}
	if err := store.Create(run); err != nil {
		t.Fatal(err)
	}

	repoDir := store.Paths().RepoDir(run.ID)
	for name, content := range markdown {
		path := filepath.Join(repoDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return run
}

func TestExtractor_TrimsToTarget(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	run := extractionRun(t, store, 3, map[string]string{
		"README.md":     "# readme with a long intro section\n",
		"docs/guide.md": "# guide\n",
		"docs/api.md":   "# api\n",
		"docs/faq.md":   "# faq\n",
	})

	extractor := NewExtractor(store.Paths(), &fakeDocExtractor{perDoc: 2})
	result, err := extractor.Extract(context.Background(), run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.UseCases) != 3 {
		t.Errorf("expected 3 use cases after trimming, got %d", len(result.UseCases))
	}
	if result.TotalFound < 3 {
		t.Errorf("expected at least 3 found, got %d", result.TotalFound)
	}

	// Saved artifact matches the returned result.
	data, err := os.ReadFile(store.Paths().UseCasesPath(run.ID))
	if err != nil {
		t.Fatalf("use_cases.json missing: %v", err)
	}
	var saved models.ExtractionResult
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("use_cases.json not parseable: %v", err)
	}
	if len(saved.UseCases) != len(result.UseCases) {
		t.Errorf("saved %d use cases, returned %d", len(saved.UseCases), len(result.UseCases))
	}
}

func TestExtractor_TagsSourceDocuments(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	run := extractionRun(t, store, 5, map[string]string{
		"README.md": "# readme\n",
	})

	extractor := NewExtractor(store.Paths(), &fakeDocExtractor{perDoc: 1})
	result, err := extractor.Extract(context.Background(), run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.UseCases) != 1 {
		t.Fatalf("expected 1 use case, got %d", len(result.UseCases))
	}
	if len(result.UseCases[0].SourceDocuments) != 1 || result.UseCases[0].SourceDocuments[0] != "README.md" {
		t.Errorf("expected source document tag, got %v", result.UseCases[0].SourceDocuments)
	}
}

func TestExtractor_NoMarkdown(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	run := extractionRun(t, store, 3, nil)

	extractor := NewExtractor(store.Paths(), &fakeDocExtractor{perDoc: 1})
	result, err := extractor.Extract(context.Background(), run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.UseCases) != 0 {
		t.Errorf("expected no use cases, got %d", len(result.UseCases))
	}
	if len(result.Errors) == 0 {
		t.Error("expected explanatory error string")
	}
}

func TestExtractor_DocumentFailuresAreRecorded(t *testing.T) {
	store := storage.NewRunStore(t.TempDir())
	run := extractionRun(t, store, 10, map[string]string{
		"README.md":     "# readme\n",
		"docs/guide.md": "# guide\n",
	})

	fake := &fakeDocExtractor{perDoc: 1, failPaths: map[string]bool{"README.md": true}}
	extractor := NewExtractor(store.Paths(), fake)
	result, err := extractor.Extract(context.Background(), run)
	if err != nil {
		t.Fatalf("document failures must not abort extraction: %v", err)
	}
	if len(result.UseCases) != 1 {
		t.Errorf("expected 1 use case from the healthy document, got %d", len(result.UseCases))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %v", result.Errors)
	}
}

func TestParseUseCases(t *testing.T) {
	out := []byte("Sure, here you go:\n```json\n[{\"name\": \"probe hosts\", \"target_file\": \"solution.py\"}]\n```")

	cases, err := parseUseCases(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 1 || cases[0].Name != "probe hosts" {
		t.Errorf("unexpected cases: %+v", cases)
	}

	if _, err := parseUseCases([]byte("no array here")); err == nil {
		t.Fatal("expected error for output without array")
	}
}
