package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/drapaimern/stackbench/pkg/models"
)

// RunSummary is the registry's view of one run directory. Degraded entries
// describe directories whose snapshot could not be read; they still appear
// in listings so operators can find and remove them.
type RunSummary struct {
	ID            string
	RepoName      string
	RepoURL       string
	AgentType     string
	Phase         models.RunPhase
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TaskCount     int
	ExecutedCount int
	AnalyzedCount int
	HasErrors     bool
	Degraded      bool
	LoadError     string
}

// Registry enumerates and prunes run directories under the runs root.
type Registry interface {
	List() ([]RunSummary, error)
	Clean(olderThan time.Duration, dryRun bool) ([]RunSummary, error)
}

type fileRegistry struct {
	store RunStore
	now   func() time.Time
}

// NewRegistry creates a Registry over the given store's runs root.
func NewRegistry(store RunStore) Registry {
	return &fileRegistry{store: store, now: time.Now}
}

// List returns a summary for every run directory, newest first. A missing
// runs root is an empty registry, not an error.
func (r *fileRegistry) List() ([]RunSummary, error) {
	entries, err := os.ReadDir(r.store.Paths().Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	var summaries []RunSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summaries = append(summaries, r.summarize(entry.Name()))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Clean removes runs created more than olderThan ago. With olderThan zero
// every run is selected. In dry-run mode the selected runs are returned
// without removing anything.
func (r *fileRegistry) Clean(olderThan time.Duration, dryRun bool) ([]RunSummary, error) {
	summaries, err := r.List()
	if err != nil {
		return nil, fmt.Errorf("cleaning runs: %w", err)
	}

	cutoff := r.now().Add(-olderThan)
	var selected []RunSummary
	for _, summary := range summaries {
		if olderThan > 0 && !r.staleSince(summary).Before(cutoff) {
			continue
		}
		selected = append(selected, summary)
	}

	if dryRun {
		return selected, nil
	}

	for _, summary := range selected {
		if err := r.store.Delete(summary.ID); err != nil && !errors.Is(err, ErrRunNotFound) {
			return selected, fmt.Errorf("cleaning runs: %w", err)
		}
	}
	return selected, nil
}

// staleSince picks the timestamp age comparisons use. Degraded entries fall
// back to the directory mtime so corrupt runs still age out.
func (r *fileRegistry) staleSince(summary RunSummary) time.Time {
	if !summary.CreatedAt.IsZero() {
		return summary.CreatedAt
	}
	info, err := os.Stat(r.store.Paths().RunDir(summary.ID))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (r *fileRegistry) summarize(runID string) RunSummary {
	run, err := r.store.Load(runID)
	if err != nil {
		return RunSummary{ID: runID, Degraded: true, LoadError: err.Error()}
	}
	return RunSummary{
		ID:            run.ID,
		RepoName:      run.RepoName,
		RepoURL:       run.Config.RepoURL,
		AgentType:     run.Config.AgentType,
		Phase:         run.Phase,
		CreatedAt:     run.CreatedAt,
		UpdatedAt:     run.UpdatedAt,
		TaskCount:     len(run.Tasks),
		ExecutedCount: run.ExecutedCount(),
		AnalyzedCount: run.AnalyzedCount(),
		HasErrors:     run.HasErrors(),
	}
}
