package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StepFailed is the sentinel step recorded when the pipeline aborts.
const StepFailed = -1

const (
	ProgressStatusPending    = "pending"
	ProgressStatusProcessing = "processing"
	ProgressStatusCompleted  = "completed"
	ProgressStatusError      = "error"
)

// ProgressUpdate is an append-only record of one stage transition. Rows are
// never mutated after insert; readers order by timestamp descending.
type ProgressUpdate struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID      `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	Step      int            `gorm:"column:step;not null" json:"step"`
	Message   string         `gorm:"column:message;not null" json:"message"`
	Details   datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	Timestamp time.Time      `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (ProgressUpdate) TableName() string { return "progress_update" }

// ProgressDetails is the structured detail payload carried by a
// ProgressUpdate and mirrored over the notification channel.
type ProgressDetails struct {
	Message          string `json:"message,omitempty"`
	Status           string `json:"status,omitempty"`
	AnalysisComplete bool   `json:"analysisComplete,omitempty"`
	Error            string `json:"error,omitempty"`
}
