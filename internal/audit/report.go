package audit

import (
	"time"

	"github.com/mrlokans/bibsync/internal/dedupe"
	"github.com/mrlokans/bibsync/internal/entities"
)

// Summary holds the counters of one run.
type Summary struct {
	Records    int `json:"records,omitempty" yaml:"records,omitempty"`
	Candidates int `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Uploaded   int `json:"uploaded" yaml:"uploaded"`
	Unchanged  int `json:"unchanged" yaml:"unchanged"`
	Failed     int `json:"failed" yaml:"failed"`
	Deleted    int `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// Report is the persisted account of a run: what failed, what was
// skipped as a duplicate and which keys survived a clear.
type Report struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	Command     entities.SyncCommand   `json:"command" yaml:"command"`
	SourceFile  string                 `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	GroupID     string                 `json:"group_id,omitempty" yaml:"group_id,omitempty"`
	GeneratedAt time.Time              `json:"generated_at" yaml:"generated_at"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Summary     Summary                `json:"summary" yaml:"summary"`
	Failures    []entities.ItemFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Duplicates  []dedupe.Match         `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Remaining   []string               `json:"remaining_keys,omitempty" yaml:"remaining_keys,omitempty"`
}

// Empty reports whether there is nothing worth writing down.
func (r *Report) Empty() bool {
	return r.Error == "" && len(r.Failures) == 0 && len(r.Duplicates) == 0 && len(r.Remaining) == 0
}
