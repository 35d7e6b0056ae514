package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/services"
	"github.com/pusulaai/pusula-backend/internal/types"
)

// AnalysisHandler serves the analysis pipeline API: submission, status,
// progress history and the generated results.
type AnalysisHandler struct {
	log      *logger.Logger
	analysis services.AnalysisService
	progress services.ProgressService
}

func NewAnalysisHandler(baseLog *logger.Logger, analysis services.AnalysisService, progress services.ProgressService) *AnalysisHandler {
	return &AnalysisHandler{
		log:      baseLog.With("handler", "AnalysisHandler"),
		analysis: analysis,
		progress: progress,
	}
}

type startAnalysisRequest struct {
	YoutubeURL string `json:"youtubeUrl"`
}

func (h *AnalysisHandler) Start(c *gin.Context) {
	var req startAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.YoutubeURL == "" {
		RespondError(c, http.StatusBadRequest, "A valid YouTube URL is required")
		return
	}

	session, err := h.analysis.StartAnalysis(c.Request.Context(), req.YoutubeURL)
	if err != nil {
		if errors.Is(err, services.ErrInvalidURL) {
			RespondError(c, http.StatusBadRequest, "A valid YouTube URL is required")
			return
		}
		h.log.Error("Failed to start analysis", "error", err)
		RespondError(c, http.StatusInternalServerError, "Analysis could not be started")
		return
	}

	RespondOK(c, gin.H{
		"sessionId": session.ID,
		"message":   "Analysis started",
	})
}

func (h *AnalysisHandler) sessionFromPath(c *gin.Context) (*types.AnalysisSession, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "Session not found")
		return nil, false
	}
	session, err := h.analysis.GetSession(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to load session", "sessionID", id, "error", err)
		RespondError(c, http.StatusInternalServerError, "Session lookup failed")
		return nil, false
	}
	if session == nil {
		RespondError(c, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return session, true
}

func (h *AnalysisHandler) Status(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	RespondOK(c, gin.H{
		"session": gin.H{
			"id":          session.ID,
			"youtubeUrl":  session.YoutubeURL,
			"videoTitle":  session.VideoTitle,
			"status":      session.Status,
			"currentStep": session.CurrentStep,
			"createdAt":   session.CreatedAt,
			"updatedAt":   session.UpdatedAt,
			"completedAt": session.CompletedAt,
		},
	})
}

func (h *AnalysisHandler) Progress(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	updates, err := h.progress.ListLatest(c.Request.Context(), session.ID)
	if err != nil {
		h.log.Error("Failed to load progress", "sessionID", session.ID, "error", err)
		RespondError(c, http.StatusInternalServerError, "Progress lookup failed")
		return
	}
	RespondOK(c, gin.H{"progress": updates})
}

func (h *AnalysisHandler) Results(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	if session.Status != types.SessionStatusCompleted {
		RespondError(c, http.StatusBadRequest, "Analysis is not completed yet")
		return
	}
	RespondOK(c, gin.H{
		"results": gin.H{
			"videoTitle":         session.VideoTitle,
			"geminiAnalysis":     rawOrNull(session.GeminiAnalysis),
			"careerMatches":      rawOrNull(session.CareerMatches),
			"btkRecommendations": rawOrNull(session.BTKRecommendations),
			"studentReport":      rawOrNull(session.StudentReport),
			"parentReport":       rawOrNull(session.ParentReport),
			"completedAt":        session.CompletedAt,
		},
	})
}

func (h *AnalysisHandler) StudentReport(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	if len(session.StudentReport) == 0 {
		RespondError(c, http.StatusNotFound, "Student report is not ready")
		return
	}
	RespondOK(c, gin.H{"report": rawOrNull(session.StudentReport)})
}

func (h *AnalysisHandler) ParentReport(c *gin.Context) {
	session, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	if len(session.ParentReport) == 0 {
		RespondError(c, http.StatusNotFound, "Parent report is not ready")
		return
	}
	RespondOK(c, gin.H{"report": rawOrNull(session.ParentReport)})
}

// rawOrNull re-emits a stored JSON column verbatim, as null when unset.
func rawOrNull(col datatypes.JSON) json.RawMessage {
	if len(col) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(col)
}
