package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type RunStatus string

const (
	RunRunning   RunStatus = "Running"
	RunSucceeded RunStatus = "Succeeded"
	RunFailed    RunStatus = "Failed"
)

// IsValid returns true if RunStatus is known
func (s RunStatus) IsValid() bool {
	switch s {
	case RunRunning, RunSucceeded, RunFailed:
		return true
	}
	return false
}

func (s *RunStatus) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*s = RunStatus(v)
	case []byte:
		*s = RunStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into RunStatus", value)
	}
	return nil
}

func (s RunStatus) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid RunStatus %q", s)
	}
	return string(s), nil
}

// Audit actions recorded against a Run.
const (
	ActionPromptBuilt   = "PROMPT_BUILT"
	ActionModelInvoked  = "MODEL_INVOKED"
	ActionRecordWritten = "RECORD_WRITTEN"
	ActionRecordSkipped = "RECORD_SKIPPED"
	ActionRunFailed     = "RUN_FAILED"
)

// A Run is one invocation of the metadata generator against a single DDL file.
//
// Counters are filled in when the run finishes; a run that crashed without
// reaching FinishRun stays in the Running state.
type Run struct {
	gorm.Model
	RunID          string `gorm:"uniqueIndex;size:36;not null"`
	DatabaseName   string `gorm:"index"`
	Channel        string
	DDLPath        string
	Provider       string
	ModelID        string
	OutputDir      string
	PromptBytes    int
	ResponseBytes  int
	RecordsWritten int
	RecordsSkipped int
	Status         RunStatus `gorm:"type:text"`
	Error          string
	FinishedAt     *time.Time
}

type AuditLog struct {
	gorm.Model
	RunID     string `gorm:"index;size:36"`
	Action    string `gorm:"index"` // e.g. "RECORD_WRITTEN", "RECORD_SKIPPED"
	TableName string
	Path      string
	Message   string // human-readable message, optional
	Metadata  string // optional JSON blob for advanced inspection
}
