package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/retry"
	"github.com/mrlokans/bibsync/internal/zotero"
)

type UploadOptions struct {
	BatchSize  int
	BatchDelay time.Duration
	Policy     retry.Policy
	Checkpoint Checkpoint
}

// UploadResult accumulates the outcome of one upload run. Uploaded counts
// both newly written and unchanged items.
type UploadResult struct {
	Total        int
	Batches      int
	Uploaded     int
	Unchanged    int
	Failed       int
	NotAttempted int
	Refreshes    int
	Version      string
	Failures     []entities.ItemFailure
}

type Uploader struct {
	lib     Library
	sleeper retry.Sleeper
	logger  zerolog.Logger
	opts    UploadOptions
}

func NewUploader(lib Library, sleeper retry.Sleeper, logger zerolog.Logger, opts UploadOptions) *Uploader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultUploadBatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	opts.Policy = opts.Policy.WithDefaults()
	return &Uploader{lib: lib, sleeper: sleeper, logger: logger, opts: opts}
}

// Upload writes items in batches. Each batch is retried on version
// conflicts, rate limits and transient failures; any other failure marks
// every item of the batch failed and the run moves on. Failing to read the
// library version aborts the run with ErrVersionUnavailable.
func (u *Uploader) Upload(ctx context.Context, items []entities.Item) (*UploadResult, error) {
	result := &UploadResult{Total: len(items)}
	if len(items) == 0 {
		return result, nil
	}

	versions := &versionTracker{lib: u.lib}
	version, err := u.lib.Version(ctx)
	if err != nil {
		result.NotAttempted = len(items)
		return result, fmt.Errorf("%w: %w", ErrVersionUnavailable, err)
	}
	versions.current = version

	batches := chunk(items, u.opts.BatchSize)
	u.logger.Info().
		Int("items", len(items)).
		Int("batches", len(batches)).
		Str("version", version).
		Msg("starting upload")

	for b, batch := range batches {
		if b > 0 && u.opts.BatchDelay > 0 {
			if err := u.sleeper.Sleep(ctx, u.opts.BatchDelay); err != nil {
				return u.finish(result, versions, countFrom(batches, b)), err
			}
		}
		result.Batches++

		var written *zotero.WriteResult
		err := retry.Do(ctx, u.opts.Policy, u.sleeper, func(ctx context.Context, attempt int) error {
			var err error
			written, err = u.lib.CreateItems(ctx, batch, versions.current)
			if err != nil {
				u.logger.Warn().Err(err).Int("batch", b+1).Int("attempt", attempt).Msg("batch upload failed")
			}
			return err
		}, classify(ctx, u.opts.Policy, versions))

		switch {
		case IsAborted(err):
			u.failBatch(result, b, batch, err)
			u.logger.Error().Err(err).Int("batch", b+1).Msg("aborting upload")
			return u.finish(result, versions, countFrom(batches, b+1)), err
		case err != nil:
			u.failBatch(result, b, batch, err)
		default:
			u.recordBatch(result, b, batch, written)
			versions.advance(written.Version)
		}

		u.logger.Info().
			Int("batch", b+1).
			Int("of", len(batches)).
			Int("uploaded", result.Uploaded).
			Int("failed", result.Failed).
			Msg("batch done")
		if u.opts.Checkpoint != nil {
			u.opts.Checkpoint(b + 1)
		}
	}

	return u.finish(result, versions, 0), nil
}

func (u *Uploader) finish(result *UploadResult, versions *versionTracker, notAttempted int) *UploadResult {
	result.NotAttempted = notAttempted
	result.Refreshes = versions.refreshes
	result.Version = versions.current
	u.logger.Info().
		Int("total", result.Total).
		Int("uploaded", result.Uploaded).
		Int("unchanged", result.Unchanged).
		Int("failed", result.Failed).
		Int("not_attempted", result.NotAttempted).
		Int("version_refreshes", result.Refreshes).
		Msg("upload finished")
	return result
}

func (u *Uploader) recordBatch(result *UploadResult, b int, batch []entities.Item, written *zotero.WriteResult) {
	result.Uploaded += len(written.Successful) + len(written.Unchanged)
	result.Unchanged += len(written.Unchanged)

	indexes := make([]int, 0, len(written.Failed))
	for idx := range written.Failed {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		f := written.Failed[idx]
		failure := entities.ItemFailure{
			Batch:      b + 1,
			Index:      idx,
			Cause:      f.Message,
			StatusCode: f.Code,
		}
		if idx >= 0 && idx < len(batch) {
			failure.Title = batch[idx].Title()
			failure.Item = batch[idx]
		}
		result.Failures = append(result.Failures, failure)
		result.Failed++
		u.logger.Warn().
			Int("batch", b+1).
			Int("index", idx).
			Int("code", f.Code).
			Str("title", failure.Title).
			Str("message", f.Message).
			Msg("item rejected")
	}
}

func (u *Uploader) failBatch(result *UploadResult, b int, batch []entities.Item, cause error) {
	status := zotero.StatusCode(cause)
	for i, item := range batch {
		result.Failures = append(result.Failures, entities.ItemFailure{
			Batch:      b + 1,
			Index:      i,
			Title:      item.Title(),
			Cause:      cause.Error(),
			StatusCode: status,
			Item:       item,
		})
	}
	result.Failed += len(batch)
	u.logger.Error().Err(cause).Int("batch", b+1).Int("items", len(batch)).Msg("batch failed")
}

func countFrom[T any](batches [][]T, from int) int {
	n := 0
	for _, batch := range batches[from:] {
		n += len(batch)
	}
	return n
}
