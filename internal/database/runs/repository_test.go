package runs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bibsync/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.SyncRun{}))
	return NewRepository(db)
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := setupTestDB(t)

	run := &entities.SyncRun{
		RunID:      "run-1",
		Command:    entities.SyncCommandImport,
		SourceFile: "export.ris",
		Candidates: 10,
	}
	require.NoError(t, repo.Save(run))
	assert.NotZero(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())

	run.Uploaded = 8
	run.Failed = 2
	run.Status = entities.SyncStatusPartial
	run.FinishedAt = time.Now()
	require.NoError(t, repo.Save(run))

	got, err := repo.GetByRunID("run-1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Uploaded)
	assert.Equal(t, entities.SyncStatusPartial, got.Status)

	_, err = repo.GetByRunID("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_Recent(t *testing.T) {
	repo := setupTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	commands := []entities.SyncCommand{entities.SyncCommandConvert, entities.SyncCommandImport, entities.SyncCommandClear, entities.SyncCommandImport}
	for i, cmd := range commands {
		require.NoError(t, repo.Save(&entities.SyncRun{
			RunID:     string(rune('a' + i)),
			Command:   cmd,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Uploaded:  i,
			Deleted:   i * 10,
		}))
	}

	recent, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].RunID)
	assert.Equal(t, "c", recent[1].RunID)

	imports, err := repo.RecentByCommand(entities.SyncCommandImport, 0)
	require.NoError(t, err)
	require.Len(t, imports, 2)
	assert.Equal(t, "d", imports[0].RunID)

	totals, err := repo.Totals()
	require.NoError(t, err)
	assert.Equal(t, Totals{Runs: 4, Uploaded: 6, Deleted: 60}, totals)

	removed, err := repo.DeleteOlderThan(base.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
