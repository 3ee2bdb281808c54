package cli

import (
	"github.com/drapaimern/stackbench/internal/analysis"
	"github.com/drapaimern/stackbench/internal/core"
	"github.com/drapaimern/stackbench/internal/integration"
	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/internal/storage"
	"github.com/drapaimern/stackbench/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config

	Store    storage.RunStore
	Registry storage.Registry
	Runs     core.RunManager

	Cloner    *integration.RepoCloner
	Extractor *integration.Extractor

	Coordinator *analysis.Coordinator
	Reports     *analysis.ReportGenerator

	EventLog observability.EventLog
)
