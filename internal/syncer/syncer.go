// Package syncer pushes items to and removes items from a group library in
// sequential batches under optimistic version control.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/retry"
	"github.com/mrlokans/bibsync/internal/zotero"
)

const (
	DefaultUploadBatchSize  = 25
	DefaultDeleteBatchSize  = 50
	DefaultKeyPageSize      = 100
	DefaultUploadBatchDelay = 500 * time.Millisecond
	DefaultDeleteBatchDelay = 100 * time.Millisecond
)

// ErrVersionUnavailable aborts a run when the library version cannot be read.
var ErrVersionUnavailable = errors.New("library version unavailable")

// Library is the remote surface the synchronizer needs.
type Library interface {
	Version(ctx context.Context) (string, error)
	CreateItems(ctx context.Context, items []entities.Item, version string) (*zotero.WriteResult, error)
	ListKeys(ctx context.Context, start, limit int) ([]string, error)
	DeleteItems(ctx context.Context, keys []string, version string) (string, error)
}

// Checkpoint is called after every batch, e.g. to flush the run log.
type Checkpoint func(batch int)

// versionTracker owns the version token of one run.
type versionTracker struct {
	lib       Library
	current   string
	refreshes int
}

func (v *versionTracker) refresh(ctx context.Context) error {
	version, err := v.lib.Version(ctx)
	if err != nil {
		return errors.Join(ErrVersionUnavailable, err)
	}
	v.current = version
	v.refreshes++
	return nil
}

func (v *versionTracker) advance(version string) {
	if version != "" {
		v.current = version
	}
}

// classify is the shared retry verdict: refresh on conflict, honor rate
// limits, back off on transient failures, give up on anything else.
func classify(ctx context.Context, policy retry.Policy, versions *versionTracker) retry.Classifier {
	return func(err error, attempt int) (retry.Decision, error) {
		var rateErr *zotero.RateLimitError
		switch {
		case errors.Is(err, zotero.ErrVersionConflict):
			if rerr := versions.refresh(ctx); rerr != nil {
				return retry.Decision{}, rerr
			}
			return retry.Decision{Retry: true}, nil
		case errors.As(err, &rateErr):
			wait := rateErr.RetryAfter
			if wait <= 0 {
				wait = policy.RateLimitWait
			}
			return retry.Decision{Retry: true, Wait: wait}, nil
		case zotero.IsTransient(err):
			return retry.Decision{Retry: true, Wait: policy.Backoff(attempt)}, nil
		}
		return retry.Decision{}, nil
	}
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
