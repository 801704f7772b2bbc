// Package database opens the run-history store.
//
// The store is a single sqlite file migrated on open. Record access lives
// in sub-packages that take the *gorm.DB:
//
//	db, err := database.NewDatabase("./bibsync.db")
//	runs := runs.NewRepository(db.DB)
//	recent, err := runs.Recent(10)
//
// History is optional; callers skip it when no path is configured.
package database
