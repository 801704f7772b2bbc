package http

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/database"
	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/importers"
)

// Converter turns an archival export into exchange text.
type Converter interface {
	Convert(content, source string) *importers.ConvertResult
}

// Importer pushes exchange text to the group library.
type Importer interface {
	Import(ctx context.Context, content, source string) (*importers.ImportResult, error)
}

// RunHistory lists recorded runs.
type RunHistory interface {
	Recent(limit int) ([]entities.SyncRun, error)
	GetByRunID(runID string) (*entities.SyncRun, error)
}

// Scheduler is the cron sync the API can inspect and trigger.
type Scheduler interface {
	IsRunning() bool
	IsSyncing() bool
	NextRunTime() *time.Time
	LastRun() (time.Time, error)
	RunNow() error
}

// RouterConfig holds all dependencies for the HTTP router. Optional
// dependencies left nil disable their endpoints.
type RouterConfig struct {
	Converter Converter
	Importer  Importer
	Database  *database.Database
	History   RunHistory
	Scheduler Scheduler
	Logger    zerolog.Logger

	// Application info
	Version string
}
