package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drapaimern/stackbench/pkg/models"
)

// RunStore is the subset of storage.RunStore that RunManager needs.
// Defining it here keeps core independent of the storage package.
type RunStore interface {
	Create(run *models.Run) error
	Load(runID string) (*models.Run, error)
	Save(run *models.Run) error
	Lock(runID string) (unlock func() error, err error)
}

// RunManager drives the run lifecycle through explicit load-operate-save
// cycles. There is no ambient run state: every operation loads the snapshot,
// applies one lifecycle mutation, and persists only if the mutation
// succeeded, so a rejected operation leaves the stored state untouched.
type RunManager interface {
	Create(cfg models.RunConfig) (*models.Run, error)
	Get(runID string) (*models.Run, error)
	MarkCloned(runID string) (*models.Run, error)
	SetUseCases(runID string, cases []models.UseCase) (*models.Run, error)
	RecordExecution(runID string, number int, outcome models.ExecutionStatus, method models.ExecutionMethod, artifactFound bool) (*models.Run, error)
	RecordAnalysis(runID string, number int, outcome models.AnalysisStatus, artifactFound bool) (*models.Run, error)
	MarkOverallReportWritten(runID string) (*models.Run, error)
	MarkCompleted(runID string) (*models.Run, error)
	RecordError(runID string, number int, message string)
}

type runManager struct {
	store RunStore
}

// NewRunManager creates a RunManager backed by the given store.
func NewRunManager(store RunStore) RunManager {
	return &runManager{store: store}
}

// Create builds a new run in the created phase with an empty task
// collection and persists it. The configuration is frozen at this point.
func (m *runManager) Create(cfg models.RunConfig) (*models.Run, error) {
	if cfg.RepoURL == "" {
		return nil, fmt.Errorf("creating run: repository URL must not be empty")
	}

	now := time.Now().UTC()
	run := &models.Run{
		ID:        uuid.NewString(),
		RepoName:  RepoNameFromURL(cfg.RepoURL),
		Phase:     models.PhaseCreated,
		CreatedAt: now,
		UpdatedAt: now,
		Config:    cfg,
	}

	if err := m.store.Create(run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	return run, nil
}

// Get loads a run snapshot without mutating it.
func (m *runManager) Get(runID string) (*models.Run, error) {
	run, err := m.store.Load(runID)
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	return run, nil
}

func (m *runManager) MarkCloned(runID string) (*models.Run, error) {
	return m.apply(runID, "marking cloned", MarkCloned)
}

func (m *runManager) SetUseCases(runID string, cases []models.UseCase) (*models.Run, error) {
	return m.apply(runID, "setting use cases", func(r *models.Run) error {
		return SetUseCases(r, cases)
	})
}

func (m *runManager) RecordExecution(runID string, number int, outcome models.ExecutionStatus, method models.ExecutionMethod, artifactFound bool) (*models.Run, error) {
	op := fmt.Sprintf("recording execution of use case %d", number)
	return m.apply(runID, op, func(r *models.Run) error {
		return RecordExecution(r, number, outcome, method, artifactFound)
	})
}

func (m *runManager) RecordAnalysis(runID string, number int, outcome models.AnalysisStatus, artifactFound bool) (*models.Run, error) {
	op := fmt.Sprintf("recording analysis of use case %d", number)
	return m.apply(runID, op, func(r *models.Run) error {
		return RecordAnalysis(r, number, outcome, artifactFound)
	})
}

func (m *runManager) MarkOverallReportWritten(runID string) (*models.Run, error) {
	return m.apply(runID, "marking overall report written", MarkOverallReportWritten)
}

func (m *runManager) MarkCompleted(runID string) (*models.Run, error) {
	return m.apply(runID, "marking completed", MarkCompleted)
}

// RecordError appends to the run- or task-level error log. Best effort: a
// run that cannot be loaded or saved is left alone, since error logging must
// never mask the failure being logged.
func (m *runManager) RecordError(runID string, number int, message string) {
	unlock, err := m.store.Lock(runID)
	if err != nil {
		return
	}
	defer unlock()

	run, err := m.store.Load(runID)
	if err != nil {
		return
	}
	RecordError(run, number, message)
	_ = m.store.Save(run)
}

// apply is the load-operate-save cycle shared by all mutating operations. The
// run lock is held across the whole cycle so concurrent invocations cannot
// save on top of each other's stale reads.
func (m *runManager) apply(runID, op string, mutate func(*models.Run) error) (*models.Run, error) {
	unlock, err := m.store.Lock(runID)
	if err != nil {
		return nil, fmt.Errorf("%s: locking run %s: %w", op, runID, err)
	}
	defer unlock()

	run, err := m.store.Load(runID)
	if err != nil {
		return nil, fmt.Errorf("%s: run %s: %w", op, runID, err)
	}
	if err := mutate(run); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := m.store.Save(run); err != nil {
		return nil, fmt.Errorf("%s: saving run %s: %w", op, runID, err)
	}
	return run, nil
}

// RepoNameFromURL extracts the repository name from a git URL or local path.
func RepoNameFromURL(repoURL string) string {
	name := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return "repository"
	}
	return name
}
