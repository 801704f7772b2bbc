package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bibsync/internal/entities"
)

// Database holds the run history store.
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (creating when needed) the sqlite file at dbPath and
// migrates the run table. ":memory:" is accepted for tests.
func NewDatabase(dbPath string) (*Database, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run history %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&entities.SyncRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run history: %w", err)
	}

	return &Database{DB: db}, nil
}

// Ping checks the underlying connection.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
