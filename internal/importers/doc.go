// Package importers wires the stages of a library sync into one pipeline.
//
// # Architecture
//
// An import follows a simple flow:
//
//	Archival export → midos.Mapper → exchange text → Converter → entities.Item
//	  → dedupe.Detector → syncer.Uploader → group library
//
// Every run gets a run id. When a RunRecorder is configured the run and its
// counters are stored in the history database, and when a ReportWriter is
// configured a report is written for runs that saw failures or duplicates.
//
// # Converters
//
// Two Converter implementations ship with the package:
//
//   - LocalConverter builds items with ris.Builder and the per-type schemas.
//   - FallbackConverter asks a translation server first and falls back to
//     the local builder when the server cannot be reached or rejects a
//     chunk.
//
// # Dry runs
//
// With Options.DryRun the pipeline stops after duplicate detection and
// returns the items that would have been uploaded. The library is still
// read for the duplicate check unless Options.SkipDedupe is set.
package importers
