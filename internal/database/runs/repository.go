// Package runs records pipeline runs for the history command.
package runs

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bibsync/internal/entities"
)

const defaultLimit = 20

// ErrRunNotFound is returned when no run matches the given id.
var ErrRunNotFound = errors.New("run not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts or updates a run.
func (r *Repository) Save(run *entities.SyncRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return r.db.Save(run).Error
}

// GetByRunID retrieves a run by its public id.
func (r *Repository) GetByRunID(runID string) (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent returns the latest runs, newest first.
func (r *Repository) Recent(limit int) ([]entities.SyncRun, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var runs []entities.SyncRun
	err := r.db.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// RecentByCommand filters Recent to one command.
func (r *Repository) RecentByCommand(command entities.SyncCommand, limit int) ([]entities.SyncRun, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var runs []entities.SyncRun
	err := r.db.Where("command = ?", command).
		Order("started_at DESC").Order("id DESC").
		Limit(limit).Find(&runs).Error
	return runs, err
}

// Totals sums uploaded, failed and deleted counts over all runs.
type Totals struct {
	Runs     int64
	Uploaded int64
	Failed   int64
	Deleted  int64
}

func (r *Repository) Totals() (Totals, error) {
	var t Totals
	err := r.db.Model(&entities.SyncRun{}).
		Select("COUNT(*) AS runs, COALESCE(SUM(uploaded), 0) AS uploaded, COALESCE(SUM(failed), 0) AS failed, COALESCE(SUM(deleted), 0) AS deleted").
		Scan(&t).Error
	return t, err
}

// DeleteOlderThan removes runs that started before the cutoff.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", cutoff).Delete(&entities.SyncRun{})
	return result.RowsAffected, result.Error
}
