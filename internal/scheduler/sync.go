// Package scheduler runs the import pipeline on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/importers"
	"github.com/mrlokans/bibsync/internal/textfile"
)

const DefaultRunTimeout = 30 * time.Minute

// ErrAlreadySyncing is returned by RunNow while a run is in progress.
var ErrAlreadySyncing = errors.New("sync already in progress")

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Syncer is the part of the pipeline a scheduled sync needs.
type Syncer interface {
	Sync(ctx context.Context, content, source string) (*importers.ConvertResult, *importers.ImportResult, error)
}

// FileSyncJob reads an archival export from path on every run and syncs it.
func FileSyncJob(s Syncer, path string, logger zerolog.Logger) Job {
	return func(ctx context.Context) error {
		content, enc, err := textfile.ReadFile(path)
		if err != nil {
			return err
		}
		logger.Debug().Str("file", path).Str("encoding", enc).Msg("export loaded")

		converted, imported, err := s.Sync(ctx, content, path)
		if err != nil {
			return err
		}
		ev := logger.Info().Int("records", converted.Records)
		if imported.Upload != nil {
			ev = ev.Int("uploaded", imported.Upload.Uploaded).Int("failed", imported.Upload.Failed)
		}
		ev.Int("duplicates", len(imported.Duplicates)).Msg("scheduled sync done")
		return nil
	}
}

// Importer is the part of the pipeline a scheduled exchange-file import needs.
type Importer interface {
	Import(ctx context.Context, content, source string) (*importers.ImportResult, error)
}

// FileImportJob reads an exchange-format file on every run and imports it.
func FileImportJob(imp Importer, path string, logger zerolog.Logger) Job {
	return func(ctx context.Context) error {
		content, _, err := textfile.ReadFile(path)
		if err != nil {
			return err
		}
		result, err := imp.Import(ctx, content, path)
		if err != nil {
			return err
		}
		ev := logger.Info().Int("candidates", result.Candidates)
		if result.Upload != nil {
			ev = ev.Int("uploaded", result.Upload.Uploaded).Int("failed", result.Upload.Failed)
		}
		ev.Int("duplicates", len(result.Duplicates)).Msg("scheduled import done")
		return nil
	}
}

// Runner is the pipeline surface FileJob picks from.
type Runner interface {
	Syncer
	Importer
}

// FileJob returns the job for path: exchange files are imported as they
// are, anything else is read as an archival export and synced.
func FileJob(r Runner, path string, logger zerolog.Logger) Job {
	if IsExchangeFile(path) {
		return FileImportJob(r, path, logger)
	}
	return FileSyncJob(r, path, logger)
}

// IsExchangeFile reports whether path carries the exchange-format extension.
func IsExchangeFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ris")
}

// SyncScheduler manages periodic runs of a job.
type SyncScheduler struct {
	schedule string
	job      Job
	timeout  time.Duration
	logger   zerolog.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	lastErr    error
	lastRun    time.Time
	baseCtx    context.Context
	cancelFunc context.CancelFunc
}

func NewSyncScheduler(schedule string, job Job, logger zerolog.Logger) *SyncScheduler {
	return &SyncScheduler{
		schedule: schedule,
		job:      job,
		timeout:  DefaultRunTimeout,
		logger:   logger,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

// Start registers the job and starts the cron loop. Cancelling ctx stops
// the scheduler and any run in progress.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runSync)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = entryID

	s.baseCtx, s.cancelFunc = context.WithCancel(ctx)
	s.cron.Start()
	s.isRunning = true

	next, _ := NextRun(s.schedule, time.Now())
	s.logger.Info().
		Str("schedule", s.schedule).
		Str("description", Describe(s.schedule)).
		Time("next_run", next).
		Msg("sync scheduler started")

	baseCtx := s.baseCtx
	go func() {
		<-baseCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops accepting new runs and waits for a running one to finish.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	ctx := s.cron.Stop()
	cancel()
	<-ctx.Done()
	s.cron.Remove(s.entryID)

	s.logger.Info().Msg("sync scheduler stopped")
}

// RunNow triggers an immediate run in the background.
func (s *SyncScheduler) RunNow() error {
	if s.IsSyncing() {
		return ErrAlreadySyncing
	}
	go s.runSync()
	return nil
}

func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *SyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// LastRun returns when the last run finished and its error.
func (s *SyncScheduler) LastRun() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.lastErr
}

// NextRunTime returns when the next run will occur, or nil when stopped.
func (s *SyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *SyncScheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		s.logger.Info().Msg("sync skipped, already syncing")
		return
	}
	s.isSyncing = true
	base := s.baseCtx
	s.mu.Unlock()

	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.job(ctx)
	switch {
	case errors.Is(err, importers.ErrBusy):
		s.logger.Warn().Msg("scheduled sync skipped, another library run is in progress")
	case err != nil:
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("scheduled sync failed")
	default:
		s.logger.Info().Dur("duration", time.Since(start)).Msg("scheduled sync finished")
	}

	s.mu.Lock()
	s.isSyncing = false
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()
}
