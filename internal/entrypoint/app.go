package entrypoint

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/audit"
	"github.com/mrlokans/bibsync/internal/config"
	"github.com/mrlokans/bibsync/internal/database"
	"github.com/mrlokans/bibsync/internal/database/runs"
	"github.com/mrlokans/bibsync/internal/importers"
	"github.com/mrlokans/bibsync/internal/midos"
	"github.com/mrlokans/bibsync/internal/retry"
	"github.com/mrlokans/bibsync/internal/syncer"
	"github.com/mrlokans/bibsync/internal/translator"
	"github.com/mrlokans/bibsync/internal/zotero"
)

// App holds the components shared by the commands and the server.
type App struct {
	Pipeline *importers.Pipeline
	Client   *zotero.Client
	Local    *importers.LocalConverter
	DB       *database.Database
	History  *runs.Repository
	Auditor  *audit.Auditor
}

type AppOptions struct {
	// Remote requires group credentials and wires the library client.
	Remote            bool
	DryRun            bool
	SkipDedupe        bool
	UploadBatchSize   int
	DedupeWithinBatch bool
	Checkpoint        syncer.Checkpoint
}

// NewApp wires the pipeline from configuration. Run history is enabled when
// a database path is configured.
func NewApp(cfg *config.Config, logger zerolog.Logger, opts AppOptions) (*App, error) {
	app := &App{
		Auditor: audit.NewAuditor(cfg.Report.Dir, audit.ParseFormat(cfg.Report.Format)),
	}

	if cfg.Database.Path != "" {
		db, err := database.NewDatabase(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.DB = db
		app.History = runs.NewRepository(db.DB)
	}

	policy := RetryPolicy(cfg)
	sleeper := retry.ClockSleeper{}

	var lib importers.Library
	if opts.Remote {
		if err := cfg.Validate(); err != nil {
			app.Close()
			return nil, err
		}
		app.Client = zotero.NewClient(cfg.Zotero.APIURL, cfg.Zotero.GroupID, cfg.Zotero.APIKey,
			zotero.WithTimeout(cfg.Zotero.RequestTimeout),
			zotero.WithLogger(logger),
		)
		lib = app.Client
	}

	app.Local = importers.NewLocalConverter(logger)
	var converter importers.Converter = app.Local
	if cfg.Translator.URL != "" {
		remote := translator.NewClient(cfg.Translator.URL, cfg.Translator.Timeout, sleeper, logger)
		converter = importers.NewFallbackConverter(remote, app.Local, logger)
	}

	batchSize := cfg.Upload.BatchSize
	if opts.UploadBatchSize > 0 {
		batchSize = opts.UploadBatchSize
	}

	pipelineOpts := []importers.Option{
		importers.WithMapper(midos.NewMapper(midos.WithObjectBaseURL(cfg.Conversion.ObjectBaseURL))),
		importers.WithReports(app.Auditor),
		importers.WithSleeper(sleeper),
	}
	if app.History != nil {
		pipelineOpts = append(pipelineOpts, importers.WithRecorder(app.History))
	}

	app.Pipeline = importers.NewPipeline(lib, converter, logger, importers.Options{
		GroupID:           cfg.Zotero.GroupID,
		SnapshotPageSize:  cfg.Zotero.PageSize,
		SkipDedupe:        opts.SkipDedupe,
		DryRun:            opts.DryRun,
		DedupeWithinBatch: opts.DedupeWithinBatch || cfg.Upload.DedupeWithinBatch,
		Upload: syncer.UploadOptions{
			BatchSize:  batchSize,
			BatchDelay: cfg.Upload.BatchDelay,
			Policy:     policy,
			Checkpoint: opts.Checkpoint,
		},
		Clean: syncer.CleanOptions{
			BatchSize:  cfg.Delete.BatchSize,
			PageSize:   cfg.Zotero.PageSize,
			BatchDelay: cfg.Delete.BatchDelay,
			Policy:     policy,
			Checkpoint: opts.Checkpoint,
		},
	}, pipelineOpts...)

	return app, nil
}

// RetryPolicy maps the retry settings onto a policy.
func RetryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.Backoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		RateLimitWait:  cfg.Retry.RateLimitWait,
	}.WithDefaults()
}

func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
