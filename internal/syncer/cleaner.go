package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/retry"
)

type CleanOptions struct {
	BatchSize  int
	PageSize   int
	BatchDelay time.Duration
	Policy     retry.Policy
	Checkpoint Checkpoint
}

// ClearResult reports a delete run. Remaining lists keys that were found
// but not confirmed deleted.
type ClearResult struct {
	Found     int
	Deleted   int
	Batches   int
	Refreshes int
	Version   string
	Remaining []string
}

type Cleaner struct {
	lib     Library
	sleeper retry.Sleeper
	logger  zerolog.Logger
	opts    CleanOptions
}

func NewCleaner(lib Library, sleeper retry.Sleeper, logger zerolog.Logger, opts CleanOptions) *Cleaner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultDeleteBatchSize
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultKeyPageSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	opts.Policy = opts.Policy.WithDefaults()
	return &Cleaner{lib: lib, sleeper: sleeper, logger: logger, opts: opts}
}

// Keys pages through every item key of the library.
func (c *Cleaner) Keys(ctx context.Context) ([]string, error) {
	versions := &versionTracker{lib: c.lib}
	var keys []string
	for start := 0; ; start += c.opts.PageSize {
		if start > 0 && c.opts.BatchDelay > 0 {
			if err := c.sleeper.Sleep(ctx, c.opts.BatchDelay); err != nil {
				return keys, err
			}
		}

		var page []string
		err := retry.Do(ctx, c.opts.Policy, c.sleeper, func(ctx context.Context, _ int) error {
			var err error
			page, err = c.lib.ListKeys(ctx, start, c.opts.PageSize)
			return err
		}, classify(ctx, c.opts.Policy, versions))
		if err != nil {
			return keys, fmt.Errorf("failed to list keys at %d: %w", start, err)
		}
		if len(page) == 0 {
			break
		}
		keys = append(keys, page...)
		c.logger.Debug().Int("start", start).Int("page", len(page)).Int("total", len(keys)).Msg("listed keys")
	}
	return keys, nil
}

// Clear deletes every item of the library. A version conflict refreshes
// the version and repeats the same batch; any other failure stops the run.
func (c *Cleaner) Clear(ctx context.Context) (*ClearResult, error) {
	result := &ClearResult{}

	keys, err := c.Keys(ctx)
	result.Found = len(keys)
	if err != nil {
		result.Remaining = keys
		return result, err
	}
	if len(keys) == 0 {
		c.logger.Info().Msg("library is already empty")
		return result, nil
	}

	versions := &versionTracker{lib: c.lib}
	version, err := c.lib.Version(ctx)
	if err != nil {
		result.Remaining = keys
		return result, fmt.Errorf("%w: %w", ErrVersionUnavailable, err)
	}
	versions.current = version

	batches := chunk(keys, c.opts.BatchSize)
	c.logger.Info().Int("keys", len(keys)).Int("batches", len(batches)).Str("version", version).Msg("starting delete")

	for b, batch := range batches {
		if b > 0 && c.opts.BatchDelay > 0 {
			if err := c.sleeper.Sleep(ctx, c.opts.BatchDelay); err != nil {
				return c.finish(result, versions, keys[b*c.opts.BatchSize:]), err
			}
		}
		result.Batches++

		var newVersion string
		err := retry.Do(ctx, c.opts.Policy, c.sleeper, func(ctx context.Context, attempt int) error {
			var err error
			newVersion, err = c.lib.DeleteItems(ctx, batch, versions.current)
			if err != nil {
				c.logger.Warn().Err(err).Int("batch", b+1).Int("attempt", attempt).Msg("batch delete failed")
			}
			return err
		}, classify(ctx, c.opts.Policy, versions))
		if err != nil {
			c.logger.Error().Err(err).Int("batch", b+1).Msg("stopping delete")
			return c.finish(result, versions, keys[b*c.opts.BatchSize:]), fmt.Errorf("delete batch %d: %w", b+1, err)
		}

		versions.advance(newVersion)
		result.Deleted += len(batch)
		c.logger.Info().Int("batch", b+1).Int("of", len(batches)).Int("deleted", result.Deleted).Msg("batch deleted")
		if c.opts.Checkpoint != nil {
			c.opts.Checkpoint(b + 1)
		}
	}

	return c.finish(result, versions, nil), nil
}

func (c *Cleaner) finish(result *ClearResult, versions *versionTracker, remaining []string) *ClearResult {
	result.Remaining = append([]string(nil), remaining...)
	result.Refreshes = versions.refreshes
	result.Version = versions.current
	c.logger.Info().
		Int("found", result.Found).
		Int("deleted", result.Deleted).
		Int("remaining", len(result.Remaining)).
		Msg("delete finished")
	return result
}

// IsAborted reports whether err ended a run before all batches were tried.
func IsAborted(err error) bool {
	return errors.Is(err, ErrVersionUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
