package entities

import "time"

type SyncCommand string

const (
	SyncCommandConvert SyncCommand = "convert"
	SyncCommandImport  SyncCommand = "import"
	SyncCommandClear   SyncCommand = "clear"
)

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncRun is one recorded run of the pipeline.
type SyncRun struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	RunID      string      `gorm:"uniqueIndex;size:36" json:"run_id"`
	Command    SyncCommand `gorm:"index;size:20" json:"command"`
	SourceFile string      `gorm:"size:500" json:"source_file"`
	GroupID    string      `gorm:"size:50" json:"group_id,omitempty"`
	Records    int         `json:"records"`
	Candidates int         `json:"candidates"`
	Duplicates int         `json:"duplicates"`
	Uploaded   int         `json:"uploaded"`
	Unchanged  int         `json:"unchanged"`
	Failed     int         `json:"failed"`
	Deleted    int         `json:"deleted"`
	Status     SyncStatus  `gorm:"size:20" json:"status"`
	ErrorMsg   string      `gorm:"size:500" json:"error_msg,omitempty"`
	ReportPath string      `gorm:"size:500" json:"report_path,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

// ItemFailure describes one item the remote service did not accept.
type ItemFailure struct {
	Batch      int    `json:"batch" yaml:"batch"`
	Index      int    `json:"index" yaml:"index"`
	Title      string `json:"title" yaml:"title"`
	Cause      string `json:"cause" yaml:"cause"`
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Item       Item   `json:"item" yaml:"item"`
}
