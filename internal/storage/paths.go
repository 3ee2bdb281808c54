// Package storage provides durable persistence for run snapshots and the
// registry that enumerates them. Each run owns one directory under the runs
// root; the snapshot file inside it is the single source of truth for the
// run's state.
package storage

import (
	"fmt"
	"path/filepath"
)

const (
	snapshotFile = "run.yaml"
	lockFileName = "run.lock"
	repoDirName  = "repo"
	dataDirName  = "data"
)

// Paths derives every on-disk location for a run from the runs root and the
// run identifier. Nothing else in the system hardcodes layout.
type Paths struct {
	root string
}

// NewPaths creates a Paths rooted at the given runs directory.
func NewPaths(root string) Paths {
	return Paths{root: root}
}

// Root returns the runs root directory.
func (p Paths) Root() string {
	return p.root
}

// RunDir returns the directory owning all of a run's persisted state.
func (p Paths) RunDir(runID string) string {
	return filepath.Join(p.root, runID)
}

// SnapshotPath returns the location of the run state snapshot file.
func (p Paths) SnapshotPath(runID string) string {
	return filepath.Join(p.RunDir(runID), snapshotFile)
}

// LockPath returns the advisory lock file guarding read-modify-write cycles.
func (p Paths) LockPath(runID string) string {
	return filepath.Join(p.RunDir(runID), lockFileName)
}

// RepoDir returns where the benchmarked repository is cloned.
func (p Paths) RepoDir(runID string) string {
	return filepath.Join(p.RunDir(runID), repoDirName)
}

// DataDir returns the directory holding extraction output, per-use-case
// artifacts, and the aggregate reports.
func (p Paths) DataDir(runID string) string {
	return filepath.Join(p.RunDir(runID), dataDirName)
}

// UseCasesPath returns the extracted task definitions file.
func (p Paths) UseCasesPath(runID string) string {
	return filepath.Join(p.DataDir(runID), "use_cases.json")
}

// UseCaseDir returns the per-use-case artifact directory.
func (p Paths) UseCaseDir(runID string, number int) string {
	return filepath.Join(p.DataDir(runID), fmt.Sprintf("use_case_%d", number))
}

// ImplementationPath returns the expected implementation artifact location.
func (p Paths) ImplementationPath(runID string, number int, targetFile string) string {
	return filepath.Join(p.UseCaseDir(runID, number), targetFile)
}

// AnalysisPath returns the expected analysis-result artifact location.
func (p Paths) AnalysisPath(runID string, number int) string {
	return filepath.Join(p.UseCaseDir(runID, number), fmt.Sprintf("use_case_%d_analysis.json", number))
}

// ResultsJSONPath returns the machine-readable aggregate report location.
func (p Paths) ResultsJSONPath(runID string) string {
	return filepath.Join(p.DataDir(runID), "results.json")
}

// ResultsMarkdownPath returns the narrative aggregate report location.
func (p Paths) ResultsMarkdownPath(runID string) string {
	return filepath.Join(p.DataDir(runID), "results.md")
}
