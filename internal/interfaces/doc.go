// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Remote Library
//
//   - syncer.Library: version, create, list keys, delete (internal/syncer/syncer.go)
//   - importers.Library: syncer.Library plus Snapshot (internal/importers/pipeline.go)
//   - importers.Translator: optional translation server (internal/importers/converter.go)
//   - retry.Sleeper: every wait between attempts and batches (internal/retry/sleeper.go)
//
// ## Persistence
//
//   - importers.RunRecorder: run history (internal/database/runs)
//   - importers.ReportWriter: failure and duplicate reports (internal/audit)
//   - http.RunHistory: read access to run history for the API
//
// ## Pipeline Consumers
//
//   - http.Converter, http.Importer: API handlers
//   - scheduler.Syncer, scheduler.Importer: scheduled jobs
//   - http.Scheduler: scheduler status and manual trigger
//
// # Adding a New Converter
//
// Items can come from any source that produces exchange text:
//
//  1. Implement importers.Converter
//
//     type CSLConverter struct{}
//
//     func (c *CSLConverter) Convert(ctx context.Context, content string) ([]entities.Item, error)
//
//     var _ importers.Converter = (*CSLConverter)(nil)
//
//  2. Pass it to importers.NewPipeline in internal/entrypoint/app.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
