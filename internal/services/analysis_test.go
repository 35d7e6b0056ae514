package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pusulaai/pusula-backend/internal/repos"
	"github.com/pusulaai/pusula-backend/internal/repos/testutil"
	"github.com/pusulaai/pusula-backend/internal/types"
)

type fakeYouTube struct {
	transcriptErr error
}

func (f *fakeYouTube) ValidateURL(videoURL string) bool {
	return strings.Contains(videoURL, "youtube.com") || strings.Contains(videoURL, "youtu.be")
}

func (f *fakeYouTube) ExtractVideoID(videoURL string) string { return "vid123" }

func (f *fakeYouTube) GetVideoDetails(ctx context.Context, videoURL string) (*VideoDetails, error) {
	return &VideoDetails{Title: "Robotics 101", Duration: "PT12M"}, nil
}

func (f *fakeYouTube) ExtractTranscript(ctx context.Context, videoURL string) (string, error) {
	if f.transcriptErr != nil {
		return "", f.transcriptErr
	}
	return "A long transcript about robotics, sensors and embedded programming.", nil
}

type fakeGemini struct{}

func (f *fakeGemini) AnalyzeTranscript(ctx context.Context, transcript, videoTitle string) (*types.GeminiAnalysis, error) {
	return &types.GeminiAnalysis{
		MainTopics:             []string{"robotics", "programming"},
		RelatedSectors:         []string{"automation"},
		CompetencyRequirements: []string{"electronics"},
		JobMarketFit:           types.JobMarketFitHigh,
		DetailedAnalysis:       "Strong engineering orientation.",
	}, nil
}

func (f *fakeGemini) MatchCareers(ctx context.Context, analysis *types.GeminiAnalysis) ([]types.CareerMatch, error) {
	return []types.CareerMatch{
		{Career: "Robotics Engineer", MatchScore: 92},
		{Career: "Embedded Developer", MatchScore: 85},
	}, nil
}

func (f *fakeGemini) GenerateStudentReport(ctx context.Context, videoTitle string, analysis *types.GeminiAnalysis, matches []types.CareerMatch, courses []types.BTKCourse) (*types.StudentReport, error) {
	return &types.StudentReport{
		VideoTopic:         videoTitle,
		MainTopics:         analysis.MainTopics,
		CareerAreas:        matches,
		RecommendedCourses: courses,
		NextActions:        []string{"join a robotics club"},
	}, nil
}

func (f *fakeGemini) GenerateParentReport(ctx context.Context, videoTitle string, analysis *types.GeminiAnalysis, matches []types.CareerMatch) (*types.ParentReport, error) {
	return &types.ParentReport{
		ChildInterests:  analysis.MainTopics,
		CareerPotential: "Promising engineering aptitude.",
	}, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []*types.ProgressUpdate
}

func (c *captureNotifier) BroadcastProgress(update *types.ProgressUpdate) {
	c.mu.Lock()
	c.events = append(c.events, update)
	c.mu.Unlock()
}

func (c *captureNotifier) snapshot() []*types.ProgressUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.ProgressUpdate, len(c.events))
	copy(out, c.events)
	return out
}

type pipelineFixture struct {
	service  AnalysisService
	sessions repos.AnalysisSessionRepo
	notifier *captureNotifier
}

func newPipelineFixture(t *testing.T, yt YouTubeClient) *pipelineFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	sessionRepo := repos.NewAnalysisSessionRepo(db, log)
	progressRepo := repos.NewProgressUpdateRepo(db, log)
	courseRepo := repos.NewBTKCourseRepo(db, log)

	notifier := &captureNotifier{}
	progress := NewProgressService(log, progressRepo, notifier)

	courses := NewBTKCourseService(log, courseRepo, nil)
	if err := courses.EnsureCatalog(context.Background()); err != nil {
		t.Fatalf("EnsureCatalog: %v", err)
	}

	return &pipelineFixture{
		service:  NewAnalysisService(log, sessionRepo, progress, yt, &fakeGemini{}, courses),
		sessions: sessionRepo,
		notifier: notifier,
	}
}

func waitForTerminal(t *testing.T, fx *pipelineFixture, id uuid.UUID) *types.AnalysisSession {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for {
		session, err := fx.service.GetSession(ctx, id)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if session != nil && session.IsTerminal() {
			return session
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never reached a terminal status")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStartAnalysisRejectsInvalidURL(t *testing.T) {
	fx := newPipelineFixture(t, &fakeYouTube{})

	if _, err := fx.service.StartAnalysis(context.Background(), "https://example.com/not-a-video"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("StartAnalysis: want ErrInvalidURL, got %v", err)
	}
}

func TestPipelineCompletesAllStages(t *testing.T) {
	fx := newPipelineFixture(t, &fakeYouTube{})

	session, err := fx.service.StartAnalysis(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	if session.Status != types.SessionStatusStarted || session.CurrentStep != 0 {
		t.Fatalf("fresh session: %+v", session)
	}

	final := waitForTerminal(t, fx, session.ID)
	if final.Status != types.SessionStatusCompleted {
		t.Fatalf("final status: want completed, got %s", final.Status)
	}
	if final.CurrentStep != 7 {
		t.Fatalf("final step: want 7, got %d", final.CurrentStep)
	}
	if final.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
	if final.VideoTitle != "Robotics 101" {
		t.Fatalf("video title: got %q", final.VideoTitle)
	}
	for name, col := range map[string][]byte{
		"transcript":          []byte(final.Transcript),
		"gemini_analysis":     final.GeminiAnalysis,
		"career_matches":      final.CareerMatches,
		"btk_recommendations": final.BTKRecommendations,
		"student_report":      final.StudentReport,
		"parent_report":       final.ParentReport,
	} {
		if len(col) == 0 {
			t.Fatalf("stage payload %s is empty", name)
		}
	}

	events := fx.notifier.snapshot()
	if len(events) == 0 {
		t.Fatalf("no progress events broadcast")
	}
	lastStep := 0
	for _, ev := range events {
		if ev.Step < lastStep {
			t.Fatalf("progress steps went backwards: %d after %d", ev.Step, lastStep)
		}
		lastStep = ev.Step
	}

	last := events[len(events)-1]
	if last.Step != 7 {
		t.Fatalf("last event step: want 7, got %d", last.Step)
	}
	var details types.ProgressDetails
	if err := json.Unmarshal(last.Details, &details); err != nil {
		t.Fatalf("decode final details: %v", err)
	}
	if !details.AnalysisComplete {
		t.Fatalf("final event should carry analysisComplete")
	}
}

func TestPipelineFailureRecordsSentinel(t *testing.T) {
	fx := newPipelineFixture(t, &fakeYouTube{transcriptErr: errors.New("captions unavailable")})

	session, err := fx.service.StartAnalysis(context.Background(), "https://youtu.be/broken")
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}

	final := waitForTerminal(t, fx, session.ID)
	if final.Status != types.SessionStatusFailed {
		t.Fatalf("final status: want failed, got %s", final.Status)
	}
	if final.CompletedAt != nil {
		t.Fatalf("failed session should not carry completed_at")
	}

	var failures int
	for _, ev := range fx.notifier.snapshot() {
		if ev.Step != types.StepFailed {
			continue
		}
		failures++
		var details types.ProgressDetails
		if err := json.Unmarshal(ev.Details, &details); err != nil {
			t.Fatalf("decode failure details: %v", err)
		}
		if details.Status != types.ProgressStatusError || details.Error == "" {
			t.Fatalf("failure details: %+v", details)
		}
	}
	if failures != 1 {
		t.Fatalf("failure events: want exactly 1, got %d", failures)
	}
}
