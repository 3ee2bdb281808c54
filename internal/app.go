// Package internal provides the App struct that wires all stackbench
// components together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"

	"github.com/drapaimern/stackbench/internal/analysis"
	"github.com/drapaimern/stackbench/internal/cli"
	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/internal/integration"
	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// App holds all service dependencies for stackbench.
type App struct {
	BasePath string
	Config   *models.Config

	// Storage layer
	Store    storage.RunStore
	Registry storage.Registry

	// Core services
	Runs core.RunManager

	// Integration services
	Cloner    *integration.RepoCloner
	Extractor *integration.Extractor

	// Analysis services
	Coordinator *analysis.Coordinator
	Reports     *analysis.ReportGenerator

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components. basePath is the root directory
// where all data is stored, typically ~/.stackbench.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}

	// --- Configuration ---
	cfg, err := core.LoadConfig(basePath)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage layer ---
	dataDir := core.ResolveDataDir(basePath, cfg)
	app.Store = storage.NewRunStore(dataDir)
	app.Registry = storage.NewRegistry(app.Store)

	// --- Core services ---
	app.Runs = core.NewRunManager(app.Store)

	// --- Integration services ---
	app.Cloner = integration.NewRepoCloner(cfg.GitCommand)
	docs := integration.NewCLIDocumentExtractor(cfg.ExtractCommand, cfg.ExtractModel)
	app.Extractor = integration.NewExtractor(app.Store.Paths(), docs)

	// --- Analysis services ---
	analyzer := analysis.NewCLIAnalyzer(app.Store.Paths(), cfg.AnalysisCommand)
	app.Coordinator = analysis.NewCoordinator(app.Store, analyzer)
	app.Reports = analysis.NewReportGenerator(app.Store.Paths())

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, "events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: the workflow runs without an event log.
		app.EventLog = nil
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Store = app.Store
	cli.Registry = app.Registry
	cli.Runs = app.Runs
	cli.Cloner = app.Cloner
	cli.Extractor = app.Extractor
	cli.Coordinator = app.Coordinator
	cli.Reports = app.Reports
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the stackbench data directory: STACKBENCH_HOME
// when set, otherwise ~/.stackbench.
func ResolveBasePath() string {
	if home := os.Getenv("STACKBENCH_HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stackbench"
	}
	return filepath.Join(home, ".stackbench")
}
