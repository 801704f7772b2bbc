package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bibsync/internal/audit"
	"github.com/mrlokans/bibsync/internal/database/runs"
	"github.com/mrlokans/bibsync/internal/http"
	"github.com/mrlokans/bibsync/internal/importers"
	"github.com/mrlokans/bibsync/internal/retry"
	"github.com/mrlokans/bibsync/internal/scheduler"
	"github.com/mrlokans/bibsync/internal/syncer"
	"github.com/mrlokans/bibsync/internal/translator"
	"github.com/mrlokans/bibsync/internal/zotero"
)

// =============================================================================
// Remote Library
// =============================================================================

var _ syncer.Library = (*zotero.Client)(nil)
var _ importers.Library = (*zotero.Client)(nil)

var _ importers.Translator = (*translator.Client)(nil)

var _ retry.Sleeper = retry.ClockSleeper{}

// =============================================================================
// Run History & Reports
// =============================================================================

var _ importers.RunRecorder = (*runs.Repository)(nil)
var _ http.RunHistory = (*runs.Repository)(nil)

var _ importers.ReportWriter = (*audit.Auditor)(nil)

// =============================================================================
// Pipeline Consumers
// =============================================================================

var _ http.Converter = (*importers.Pipeline)(nil)
var _ http.Importer = (*importers.Pipeline)(nil)
var _ scheduler.Syncer = (*importers.Pipeline)(nil)
var _ scheduler.Importer = (*importers.Pipeline)(nil)
var _ scheduler.Runner = (*importers.Pipeline)(nil)

var _ http.Scheduler = (*scheduler.SyncScheduler)(nil)
