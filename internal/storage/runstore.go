package storage

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/drapaimern/stackbench/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrRunNotFound is returned when no run directory exists for the given ID.
var ErrRunNotFound = errors.New("run not found")

// ErrCorruptState is returned when a run directory exists but its snapshot
// is missing or cannot be parsed.
var ErrCorruptState = errors.New("run state corrupt")

// RunStore defines the interface for persisting run snapshots. Every write
// replaces the snapshot atomically so readers never observe a partial file.
type RunStore interface {
	Create(run *models.Run) error
	Load(runID string) (*models.Run, error)
	Save(run *models.Run) error
	Delete(runID string) error
	Lock(runID string) (unlock func() error, err error)
	Paths() Paths
}

type fileRunStore struct {
	paths Paths
}

// NewRunStore creates a RunStore backed by one YAML snapshot per run under
// the given runs root.
func NewRunStore(root string) RunStore {
	return &fileRunStore{paths: NewPaths(root)}
}

func (s *fileRunStore) Paths() Paths {
	return s.paths
}

// Create makes the run directory skeleton and writes the initial snapshot.
// It fails if the run directory already exists.
func (s *fileRunStore) Create(run *models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("creating run: ID must not be empty")
	}

	dir := s.paths.RunDir(run.ID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("creating run: %s already exists", run.ID)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("creating run: checking directory: %w", err)
	}

	for _, sub := range []string{dir, s.paths.RepoDir(run.ID), s.paths.DataDir(run.ID)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("creating run: creating directory: %w", err)
		}
	}

	if err := s.writeSnapshot(run); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// Load reads the snapshot for the given run ID.
func (s *fileRunStore) Load(runID string) (*models.Run, error) {
	if _, err := os.Stat(s.paths.RunDir(runID)); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("loading run %s: %w", runID, ErrRunNotFound)
		}
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}

	data, err := os.ReadFile(s.paths.SnapshotPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("loading run %s: missing snapshot: %w", runID, ErrCorruptState)
		}
		return nil, fmt.Errorf("loading run %s: reading snapshot: %w", runID, err)
	}

	// A truncated file often still unmarshals cleanly (zero bytes yield the
	// zero value), so parse success alone does not prove the snapshot is
	// intact. Reject anything that fails basic shape validation instead of
	// silently returning a default run.
	if len(data) == 0 {
		return nil, fmt.Errorf("loading run %s: empty snapshot: %w", runID, ErrCorruptState)
	}
	var run models.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("loading run %s: parsing snapshot: %v: %w", runID, err, ErrCorruptState)
	}
	if run.Phase.Index() < 0 {
		return nil, fmt.Errorf("loading run %s: snapshot has unknown phase %q: %w", runID, run.Phase, ErrCorruptState)
	}
	if run.ID == "" {
		run.ID = runID
	}
	return &run, nil
}

// Save replaces the snapshot for an existing run.
func (s *fileRunStore) Save(run *models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("saving run: ID must not be empty")
	}
	if _, err := os.Stat(s.paths.RunDir(run.ID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("saving run %s: %w", run.ID, ErrRunNotFound)
		}
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	if err := s.writeSnapshot(run); err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// Delete removes the run directory and everything under it.
func (s *fileRunStore) Delete(runID string) error {
	dir := s.paths.RunDir(runID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("deleting run %s: %w", runID, ErrRunNotFound)
		}
		return fmt.Errorf("deleting run %s: %w", runID, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting run %s: %w", runID, err)
	}
	return nil
}

// Lock acquires an exclusive advisory lock for the run, serializing
// read-modify-write cycles across processes.
func (s *fileRunStore) Lock(runID string) (unlock func() error, err error) {
	if err := os.MkdirAll(s.paths.RunDir(runID), 0o755); err != nil {
		return nil, fmt.Errorf("locking run %s: creating directory: %w", runID, err)
	}

	f, err := os.OpenFile(s.paths.LockPath(runID), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("locking run %s: opening lock file: %w", runID, err)
	}

	// syscall.Flock is Unix-specific. On Windows, this will compile but may not work.
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("locking run %s: %w", runID, err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

// writeSnapshot marshals the run and replaces the snapshot via a temp file
// and rename, so a crash mid-write leaves the previous snapshot intact.
func (s *fileRunStore) writeSnapshot(run *models.Run) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	dir := s.paths.RunDir(run.ID)
	tmp, err := os.CreateTemp(dir, snapshotFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting snapshot mode: %w", err)
	}
	if err := os.Rename(tmpPath, s.paths.SnapshotPath(run.ID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	// Fsync the run directory so the rename itself survives a crash.
	dirFile, err := os.Open(s.paths.RunDir(run.ID))
	if err != nil {
		return fmt.Errorf("opening run dir for sync: %w", err)
	}
	if err := dirFile.Sync(); err != nil {
		dirFile.Close()
		return fmt.Errorf("syncing run dir: %w", err)
	}
	return dirFile.Close()
}
