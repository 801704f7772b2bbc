package importers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/audit"
	"github.com/mrlokans/bibsync/internal/dedupe"
	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/midos"
	"github.com/mrlokans/bibsync/internal/retry"
	"github.com/mrlokans/bibsync/internal/ris"
	"github.com/mrlokans/bibsync/internal/syncer"
)

// ErrNoLibrary is returned by operations that need a remote library when the
// pipeline was built for conversion only.
var ErrNoLibrary = errors.New("no library configured")

// ErrBusy is returned when another import, sync or clear holds the library.
var ErrBusy = errors.New("another library run is in progress")

// Library is the remote group library.
type Library interface {
	syncer.Library
	Snapshot(ctx context.Context, pageSize int) (entities.Snapshot, error)
}

// RunRecorder persists run history.
type RunRecorder interface {
	Save(run *entities.SyncRun) error
}

// ReportWriter persists the failure report of a run.
type ReportWriter interface {
	SaveReport(r *audit.Report) (string, error)
}

type Options struct {
	GroupID           string
	SnapshotPageSize  int
	SkipDedupe        bool
	DryRun            bool
	DedupeWithinBatch bool
	Upload            syncer.UploadOptions
	Clean             syncer.CleanOptions
}

type Option func(*Pipeline)

func WithMapper(m *midos.Mapper) Option {
	return func(p *Pipeline) { p.mapper = m }
}

func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func WithReports(w ReportWriter) Option {
	return func(p *Pipeline) { p.reports = w }
}

func WithSleeper(s retry.Sleeper) Option {
	return func(p *Pipeline) { p.sleeper = s }
}

// Pipeline handles the common workflow:
// archival text → exchange text → items → duplicate check → upload → report.
type Pipeline struct {
	lib       Library
	converter Converter
	mapper    *midos.Mapper
	sleeper   retry.Sleeper
	recorder  RunRecorder
	reports   ReportWriter
	logger    zerolog.Logger
	opts      Options
	now       func() time.Time

	// busy serializes runs that touch the library; writes share one
	// version token and must never overlap.
	busy sync.Mutex
}

// NewPipeline creates a pipeline. lib may be nil for conversion-only use.
func NewPipeline(lib Library, converter Converter, logger zerolog.Logger, opts Options, options ...Option) *Pipeline {
	p := &Pipeline{
		lib:       lib,
		converter: converter,
		mapper:    midos.NewMapper(),
		sleeper:   retry.ClockSleeper{},
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// ConvertResult is the outcome of an archival → exchange conversion.
type ConvertResult struct {
	RunID   string
	Records int
	Types   map[midos.DocType]int
	Output  string
}

// Convert maps archival export text to exchange text. Malformed lines are
// skipped, so conversion itself never fails.
func (p *Pipeline) Convert(content, source string) *ConvertResult {
	run := p.startRun(entities.SyncCommandConvert, source)

	records := midos.ParseRecords(content)
	result := &ConvertResult{
		RunID:   run.RunID,
		Records: len(records),
		Types:   make(map[midos.DocType]int),
	}
	for _, r := range records {
		result.Types[midos.Classify(r)]++
	}
	result.Output = ris.Format(p.mapper.MapAll(records))

	p.logger.Info().
		Int("records", result.Records).
		Interface("types", result.Types).
		Msg("conversion finished")

	run.Records = result.Records
	p.finishRun(run, nil)
	return result
}

// ImportResult is the outcome of an import run.
type ImportResult struct {
	RunID      string
	Candidates int
	Unique     []entities.Item
	Duplicates []dedupe.Match
	Upload     *syncer.UploadResult
	ReportPath string
}

// Import converts exchange text, drops items already in the library and
// uploads the rest. A dry run stops before uploading. It returns ErrBusy
// while another import, sync or clear is running.
func (p *Pipeline) Import(ctx context.Context, content, source string) (*ImportResult, error) {
	if !p.busy.TryLock() {
		return nil, ErrBusy
	}
	defer p.busy.Unlock()
	return p.importLocked(ctx, content, source)
}

func (p *Pipeline) importLocked(ctx context.Context, content, source string) (*ImportResult, error) {
	run := p.startRun(entities.SyncCommandImport, source)
	result := &ImportResult{RunID: run.RunID}

	items, err := p.converter.Convert(ctx, content)
	if err != nil {
		err = fmt.Errorf("failed to convert %s: %w", source, err)
		p.finishRun(run, err)
		return result, err
	}
	result.Candidates = len(items)
	run.Candidates = len(items)
	result.Unique = items

	if !p.opts.DryRun && p.lib == nil {
		p.finishRun(run, ErrNoLibrary)
		return result, ErrNoLibrary
	}

	if !p.opts.SkipDedupe && p.lib != nil {
		snapshot, err := p.lib.Snapshot(ctx, p.opts.SnapshotPageSize)
		if err != nil {
			err = fmt.Errorf("failed to load library snapshot: %w", err)
			p.finishRun(run, err)
			return result, err
		}
		detection := dedupe.NewDetector(p.logger, dedupe.WithinBatch(p.opts.DedupeWithinBatch)).Detect(items, snapshot)
		result.Unique = detection.Unique
		result.Duplicates = detection.Duplicates
		run.Duplicates = len(detection.Duplicates)
	}

	if p.opts.DryRun {
		p.logger.Info().
			Int("candidates", result.Candidates).
			Int("unique", len(result.Unique)).
			Int("duplicates", len(result.Duplicates)).
			Msg("dry run, nothing uploaded")
		result.ReportPath = p.writeReport(run, result, nil)
		p.finishRun(run, nil)
		return result, nil
	}

	uploader := syncer.NewUploader(p.lib, p.sleeper, p.logger, p.opts.Upload)
	upload, err := uploader.Upload(ctx, result.Unique)
	result.Upload = upload
	if upload != nil {
		run.Uploaded = upload.Uploaded
		run.Unchanged = upload.Unchanged
		run.Failed = upload.Failed + upload.NotAttempted
	}

	result.ReportPath = p.writeReport(run, result, err)
	p.finishRun(run, err)
	return result, err
}

// Sync converts archival text and imports the result in one run.
func (p *Pipeline) Sync(ctx context.Context, content, source string) (*ConvertResult, *ImportResult, error) {
	if !p.busy.TryLock() {
		return nil, nil, ErrBusy
	}
	defer p.busy.Unlock()

	converted := p.Convert(content, source)
	if converted.Records == 0 {
		return converted, nil, fmt.Errorf("%s: %w", source, ris.ErrNoEntries)
	}
	imported, err := p.importLocked(ctx, converted.Output, source)
	return converted, imported, err
}

// ClearResult is the outcome of a clear run.
type ClearResult struct {
	RunID      string
	Clear      *syncer.ClearResult
	ReportPath string
}

// Clear deletes every item of the library.
func (p *Pipeline) Clear(ctx context.Context) (*ClearResult, error) {
	if !p.busy.TryLock() {
		return nil, ErrBusy
	}
	defer p.busy.Unlock()

	run := p.startRun(entities.SyncCommandClear, "")
	result := &ClearResult{RunID: run.RunID}
	if p.lib == nil {
		p.finishRun(run, ErrNoLibrary)
		return result, ErrNoLibrary
	}

	cleaner := syncer.NewCleaner(p.lib, p.sleeper, p.logger, p.opts.Clean)
	cleared, err := cleaner.Clear(ctx)
	result.Clear = cleared
	if cleared != nil {
		run.Deleted = cleared.Deleted
		run.Failed = len(cleared.Remaining)
	}

	if p.reports != nil && (err != nil || (cleared != nil && len(cleared.Remaining) > 0)) {
		report := p.newReport(run, err)
		if cleared != nil {
			report.Remaining = cleared.Remaining
		}
		result.ReportPath = p.saveReport(report)
		run.ReportPath = result.ReportPath
	}

	p.finishRun(run, err)
	return result, err
}

func (p *Pipeline) startRun(command entities.SyncCommand, source string) *entities.SyncRun {
	run := &entities.SyncRun{
		RunID:      uuid.NewString(),
		Command:    command,
		SourceFile: source,
		GroupID:    p.opts.GroupID,
		StartedAt:  p.now(),
	}
	p.logger.Info().Str("run_id", run.RunID).Str("command", string(command)).Str("source", source).Msg("run started")
	return run
}

func (p *Pipeline) finishRun(run *entities.SyncRun, err error) {
	run.FinishedAt = p.now()
	run.Status = runStatus(run, err)
	if err != nil {
		run.ErrorMsg = truncate(err.Error(), 500)
	}

	p.logger.Info().
		Str("run_id", run.RunID).
		Str("status", string(run.Status)).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("run finished")

	if p.recorder == nil {
		return
	}
	if rerr := p.recorder.Save(run); rerr != nil {
		p.logger.Warn().Err(rerr).Str("run_id", run.RunID).Msg("failed to record run history")
	}
}

func runStatus(run *entities.SyncRun, err error) entities.SyncStatus {
	if err == nil && run.Failed == 0 {
		return entities.SyncStatusSuccess
	}
	if run.Uploaded > 0 || run.Deleted > 0 {
		return entities.SyncStatusPartial
	}
	return entities.SyncStatusFailed
}

func (p *Pipeline) newReport(run *entities.SyncRun, err error) *audit.Report {
	report := &audit.Report{
		RunID:       run.RunID,
		Command:     run.Command,
		SourceFile:  run.SourceFile,
		GroupID:     run.GroupID,
		GeneratedAt: p.now(),
		Summary: audit.Summary{
			Records:    run.Records,
			Candidates: run.Candidates,
			Duplicates: run.Duplicates,
			Uploaded:   run.Uploaded,
			Unchanged:  run.Unchanged,
			Failed:     run.Failed,
			Deleted:    run.Deleted,
		},
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report
}

func (p *Pipeline) writeReport(run *entities.SyncRun, result *ImportResult, err error) string {
	if p.reports == nil {
		return ""
	}
	report := p.newReport(run, err)
	report.Duplicates = result.Duplicates
	if result.Upload != nil {
		report.Failures = result.Upload.Failures
	}
	if report.Empty() {
		return ""
	}
	path := p.saveReport(report)
	run.ReportPath = path
	return path
}

func (p *Pipeline) saveReport(report *audit.Report) string {
	path, err := p.reports.SaveReport(report)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to write report")
		return ""
	}
	p.logger.Info().Str("path", path).Msg("report written")
	return path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
