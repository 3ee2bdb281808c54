package analysis

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/pkg/models"
)

// DefaultWorkers bounds the number of concurrent analysis collaborators
// when the run configuration does not say otherwise.
const DefaultWorkers = 3

// RunStore is the storage surface the coordinator needs: load a snapshot,
// persist it, and hold the cross-process lock for the whole batch.
type RunStore interface {
	Load(runID string) (*models.Run, error)
	Save(run *models.Run) error
	Lock(runID string) (unlock func() error, err error)
}

// Options controls one analysis batch.
type Options struct {
	// Workers overrides the worker bound. Zero means the run's configured
	// value, falling back to DefaultWorkers.
	Workers int

	// Force resets terminal analysis sub-states before the batch, so every
	// selected use case is analyzed again.
	Force bool

	// Only restricts the batch to these use case numbers. Empty means all
	// pending eligible use cases.
	Only []int
}

// Summary reports what one analysis batch did.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
	Remaining int
	Phase     models.RunPhase
}

// Coordinator fans analysis work out to a bounded worker pool. All workers
// share one in-memory run; recording an outcome and persisting the snapshot
// happen under a single mutex so each use case's result is durable before
// the next one lands. Already-analyzed use cases are never touched, which is
// what makes an interrupted batch resumable by simply running it again.
type Coordinator struct {
	store    RunStore
	analyzer Analyzer
}

// NewCoordinator creates a Coordinator over the given store and analyzer.
func NewCoordinator(store RunStore, analyzer Analyzer) *Coordinator {
	return &Coordinator{store: store, analyzer: analyzer}
}

// AnalyzeRun runs one analysis batch for the run. Individual analyzer
// failures mark their use case failed and do not abort the batch; only
// persistence failures do.
func (c *Coordinator) AnalyzeRun(ctx context.Context, runID string, opts Options) (*Summary, error) {
	unlock, err := c.store.Lock(runID)
	if err != nil {
		return nil, fmt.Errorf("analyzing run %s: %w", runID, err)
	}
	defer func() { _ = unlock() }()

	run, err := c.store.Load(runID)
	if err != nil {
		return nil, fmt.Errorf("analyzing run %s: %w", runID, err)
	}
	if run.Phase.Before(models.PhaseExecution) {
		return nil, fmt.Errorf("analyzing run %s: expected phase %s or later, got %s: %w",
			runID, models.PhaseExecution, run.Phase, core.ErrInvalidTransition)
	}

	if opts.Force {
		if err := core.ResetAnalyses(run, opts.Only); err != nil {
			return nil, fmt.Errorf("analyzing run %s: %w", runID, err)
		}
		if err := c.store.Save(run); err != nil {
			return nil, fmt.Errorf("analyzing run %s: %w", runID, err)
		}
	}

	pending, err := selectPending(run, opts.Only)
	if err != nil {
		return nil, fmt.Errorf("analyzing run %s: %w", runID, err)
	}

	summary := &Summary{Attempted: len(pending)}
	if len(pending) == 0 {
		summary.Phase = run.Phase
		summary.Remaining = len(run.EligibleForAnalysis())
		return summary, nil
	}

	requests := make([]Request, 0, len(pending))
	for _, number := range pending {
		task := run.Task(number)
		requests = append(requests, Request{
			RunID:      runID,
			Number:     number,
			Name:       task.Name,
			TargetFile: task.TargetFile,
			RepoName:   run.RepoName,
			Language:   run.Config.Language,
		})
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workerBound(run, opts))

	for _, req := range requests {
		req := req
		g.Go(func() error {
			_, analyzeErr := c.analyzer.Analyze(ctx, req)

			mu.Lock()
			defer mu.Unlock()

			outcome := models.AnalysisAnalyzed
			artifactFound := true
			if analyzeErr != nil {
				outcome = models.AnalysisFailed
				artifactFound = false
				core.RecordError(run, req.Number, analyzeErr.Error())
				summary.Failed++
			} else {
				summary.Succeeded++
			}

			if err := core.RecordAnalysis(run, req.Number, outcome, artifactFound); err != nil {
				return fmt.Errorf("recording analysis for use case %d: %w", req.Number, err)
			}
			if err := c.store.Save(run); err != nil {
				return fmt.Errorf("persisting analysis for use case %d: %w", req.Number, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("analyzing run %s: %w", runID, err)
	}

	summary.Phase = run.Phase
	summary.Remaining = len(run.EligibleForAnalysis())
	return summary, nil
}

// selectPending returns the use case numbers this batch should analyze, in
// sequence order.
func selectPending(run *models.Run, only []int) ([]int, error) {
	if len(only) == 0 {
		return run.EligibleForAnalysis(), nil
	}

	var pending []int
	for _, number := range only {
		task := run.Task(number)
		if task == nil {
			return nil, fmt.Errorf("use case %d: %w", number, core.ErrUnknownTask)
		}
		if !task.Eligible() {
			return nil, fmt.Errorf("use case %d has execution status %s: %w",
				number, task.ExecutionStatus, core.ErrTaskNotEligible)
		}
		if task.AnalysisStatus == models.AnalysisNotAnalyzed {
			pending = append(pending, number)
		}
	}
	return pending, nil
}

func workerBound(run *models.Run, opts Options) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	if run.Config.AnalysisWorkers > 0 {
		return run.Config.AnalysisWorkers
	}
	return DefaultWorkers
}
