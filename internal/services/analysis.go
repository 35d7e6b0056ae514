package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/repos"
	"github.com/pusulaai/pusula-backend/internal/types"
)

// ErrInvalidURL rejects submissions that are not YouTube links.
var ErrInvalidURL = errors.New("invalid youtube url")

const totalSteps = 7

// AnalysisService runs the seven-step pipeline: link intake, transcript
// extraction, AI analysis, career matching, course recommendations and the
// two reports. StartAnalysis returns as soon as the session row exists; the
// pipeline runs in the background and reports through the progress log.
type AnalysisService interface {
	StartAnalysis(ctx context.Context, youtubeURL string) (*types.AnalysisSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*types.AnalysisSession, error)
}

type analysisService struct {
	log      *logger.Logger
	sessions repos.AnalysisSessionRepo
	progress ProgressService
	youtube  YouTubeClient
	gemini   GeminiClient
	courses  BTKCourseService

	pipelineTimeout time.Duration
}

func NewAnalysisService(
	baseLog *logger.Logger,
	sessions repos.AnalysisSessionRepo,
	progress ProgressService,
	youtube YouTubeClient,
	gemini GeminiClient,
	courses BTKCourseService,
) AnalysisService {
	return &analysisService{
		log:             baseLog.With("service", "AnalysisService"),
		sessions:        sessions,
		progress:        progress,
		youtube:         youtube,
		gemini:          gemini,
		courses:         courses,
		pipelineTimeout: 10 * time.Minute,
	}
}

func (s *analysisService) StartAnalysis(ctx context.Context, youtubeURL string) (*types.AnalysisSession, error) {
	if !s.youtube.ValidateURL(youtubeURL) {
		return nil, ErrInvalidURL
	}

	session := &types.AnalysisSession{
		YoutubeURL:  youtubeURL,
		Status:      types.SessionStatusStarted,
		CurrentStep: 0,
	}
	session, err := s.sessions.Create(ctx, nil, session)
	if err != nil {
		return nil, fmt.Errorf("session create failed: %w", err)
	}

	go s.runPipeline(session.ID, youtubeURL)

	return session, nil
}

func (s *analysisService) GetSession(ctx context.Context, id uuid.UUID) (*types.AnalysisSession, error) {
	return s.sessions.GetByID(ctx, nil, id)
}

// runPipeline is the background worker for one session. It owns its own
// context; the submitting request has already returned.
func (s *analysisService) runPipeline(sessionID uuid.UUID, youtubeURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.pipelineTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Analysis pipeline panicked", "sessionID", sessionID, "panic", r)
			s.failSession(ctx, sessionID, fmt.Errorf("internal pipeline error"))
		}
	}()

	if err := s.processAnalysis(ctx, sessionID, youtubeURL); err != nil {
		s.log.Error("Analysis pipeline failed", "sessionID", sessionID, "error", err)
		s.failSession(ctx, sessionID, err)
	}
}

func (s *analysisService) processAnalysis(ctx context.Context, sessionID uuid.UUID, youtubeURL string) error {
	// Step 1: link received. No external work, completes immediately.
	s.sendProgress(ctx, sessionID, 1, "Video link received", types.ProgressStatusProcessing, "")
	if err := s.advance(ctx, sessionID, 1, map[string]interface{}{}); err != nil {
		return err
	}
	s.sendProgress(ctx, sessionID, 1, "Video link accepted", types.ProgressStatusCompleted, "")

	// Step 2: transcript extraction.
	s.sendProgress(ctx, sessionID, 2, "Extracting the video transcript", types.ProgressStatusProcessing, "")
	details, err := s.youtube.GetVideoDetails(ctx, youtubeURL)
	if err != nil {
		return fmt.Errorf("video lookup: %w", err)
	}
	transcript, err := s.youtube.ExtractTranscript(ctx, youtubeURL)
	if err != nil {
		return fmt.Errorf("transcript extraction: %w", err)
	}
	if err := s.advance(ctx, sessionID, 2, map[string]interface{}{
		"video_title": details.Title,
		"transcript":  transcript,
	}); err != nil {
		return err
	}
	s.sendProgress(ctx, sessionID, 2, "Video transcript extracted", types.ProgressStatusCompleted, "")

	// Step 3: AI content analysis.
	s.sendProgress(ctx, sessionID, 3, "Analyzing the video content", types.ProgressStatusProcessing, "")
	analysis, err := s.gemini.AnalyzeTranscript(ctx, transcript, details.Title)
	if err != nil {
		return fmt.Errorf("content analysis: %w", err)
	}
	if err := s.advanceJSON(ctx, sessionID, 3, "gemini_analysis", analysis); err != nil {
		return err
	}
	s.sendProgress(ctx, sessionID, 3, "Video content analyzed", types.ProgressStatusCompleted, "")

	// Step 4: career matching.
	s.sendProgress(ctx, sessionID, 4, "Matching career areas", types.ProgressStatusProcessing, "")
	matches, err := s.gemini.MatchCareers(ctx, analysis)
	if err != nil {
		return fmt.Errorf("career matching: %w", err)
	}
	if err := s.advanceJSON(ctx, sessionID, 4, "career_matches", matches); err != nil {
		return err
	}
	s.sendProgress(ctx, sessionID, 4, "Career areas matched", types.ProgressStatusCompleted, "")

	// Step 5: course recommendations.
	s.sendProgress(ctx, sessionID, 5, "Finding course recommendations", types.ProgressStatusProcessing, "")
	courses, err := s.courses.SearchCourses(ctx, analysis.MainTopics)
	if err != nil {
		return fmt.Errorf("course recommendation: %w", err)
	}
	if err := s.advanceJSON(ctx, sessionID, 5, "btk_recommendations", courses); err != nil {
		return err
	}
	s.sendProgress(ctx, sessionID, 5, "Course recommendations ready", types.ProgressStatusCompleted, "")

	// Step 6: student report.
	s.sendProgress(ctx, sessionID, 6, "Preparing the student report", types.ProgressStatusProcessing, "")
	studentReport, err := s.gemini.GenerateStudentReport(ctx, details.Title, analysis, matches, courses)
	if err != nil {
		return fmt.Errorf("student report: %w", err)
	}
	if err := s.advanceJSON(ctx, sessionID, 6, "student_report", studentReport); err != nil {
		return err
	}
	s.sendProgress(ctx, sessionID, 6, "Student report ready", types.ProgressStatusCompleted, "")

	// Step 7: parent report, then the session turns terminal.
	s.sendProgress(ctx, sessionID, 7, "Preparing the parent report", types.ProgressStatusProcessing, "")
	parentReport, err := s.gemini.GenerateParentReport(ctx, details.Title, analysis, matches)
	if err != nil {
		return fmt.Errorf("parent report: %w", err)
	}
	raw, err := json.Marshal(parentReport)
	if err != nil {
		return fmt.Errorf("step %d encode: %w", totalSteps, err)
	}
	now := time.Now()
	applied, err := s.sessions.UpdateFieldsUnlessStatus(ctx, nil, sessionID, terminalStatuses(), map[string]interface{}{
		"parent_report": datatypes.JSON(raw),
		"status":        types.SessionStatusCompleted,
		"current_step":  totalSteps,
		"completed_at":  now,
	})
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if !applied {
		s.log.Warn("Session already terminal, finalization skipped", "sessionID", sessionID)
		return nil
	}

	if _, err := s.progress.Append(ctx, sessionID, totalSteps, "Analysis completed", &types.ProgressDetails{
		Message:          "Analysis completed",
		Status:           types.ProgressStatusCompleted,
		AnalysisComplete: true,
	}); err != nil {
		s.log.Warn("Failed to persist completion event", "sessionID", sessionID, "error", err)
	}
	return nil
}

// advance writes the step counter plus stage fields, refusing to touch a
// session that already reached a terminal status.
func (s *analysisService) advance(ctx context.Context, sessionID uuid.UUID, step int, updates map[string]interface{}) error {
	updates["current_step"] = step
	applied, err := s.sessions.UpdateFieldsUnlessStatus(ctx, nil, sessionID, terminalStatuses(), updates)
	if err != nil {
		return fmt.Errorf("step %d persist: %w", step, err)
	}
	if !applied {
		return fmt.Errorf("session %s is terminal, aborting at step %d", sessionID, step)
	}
	return nil
}

func (s *analysisService) advanceJSON(ctx context.Context, sessionID uuid.UUID, step int, column string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("step %d encode: %w", step, err)
	}
	return s.advance(ctx, sessionID, step, map[string]interface{}{
		column: datatypes.JSON(raw),
	})
}

func (s *analysisService) sendProgress(ctx context.Context, sessionID uuid.UUID, step int, message, status, errText string) {
	if _, err := s.progress.Append(ctx, sessionID, step, message, &types.ProgressDetails{
		Message: message,
		Status:  status,
		Error:   errText,
	}); err != nil {
		s.log.Warn("Failed to persist progress event", "sessionID", sessionID, "step", step, "error", err)
	}
}

// failSession marks the session failed and records the single failure event,
// unless another writer already ended the session.
func (s *analysisService) failSession(ctx context.Context, sessionID uuid.UUID, cause error) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	applied, err := s.sessions.UpdateFieldsUnlessStatus(ctx, nil, sessionID, terminalStatuses(), map[string]interface{}{
		"status": types.SessionStatusFailed,
	})
	if err != nil {
		s.log.Error("Failed to mark session failed", "sessionID", sessionID, "error", err)
		return
	}
	if !applied {
		return
	}
	s.sendProgress(ctx, sessionID, types.StepFailed, "Analysis failed: "+cause.Error(), types.ProgressStatusError, cause.Error())
}

func terminalStatuses() []string {
	return []string{types.SessionStatusCompleted, types.SessionStatusFailed}
}
