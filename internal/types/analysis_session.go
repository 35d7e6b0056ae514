package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SessionStatusStarted   = "started"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// AnalysisSession is one end-to-end run of the seven-step pipeline for a
// single video link. Stage payloads stay nil until their step completes;
// nothing is written after the status turns terminal.
type AnalysisSession struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	YoutubeURL         string         `gorm:"column:youtube_url;not null" json:"youtube_url"`
	VideoTitle         string         `gorm:"column:video_title" json:"video_title,omitempty"`
	Transcript         string         `gorm:"column:transcript" json:"transcript,omitempty"`
	Status             string         `gorm:"column:status;not null;index" json:"status"`
	CurrentStep        int            `gorm:"column:current_step;not null" json:"current_step"`
	GeminiAnalysis     datatypes.JSON `gorm:"column:gemini_analysis" json:"gemini_analysis,omitempty"`
	CareerMatches      datatypes.JSON `gorm:"column:career_matches" json:"career_matches,omitempty"`
	BTKRecommendations datatypes.JSON `gorm:"column:btk_recommendations" json:"btk_recommendations,omitempty"`
	StudentReport      datatypes.JSON `gorm:"column:student_report" json:"student_report,omitempty"`
	ParentReport       datatypes.JSON `gorm:"column:parent_report" json:"parent_report,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	CompletedAt        *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (AnalysisSession) TableName() string { return "analysis_session" }

func (s *AnalysisSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusFailed
}
