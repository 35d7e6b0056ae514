package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pusulaai/pusula-backend/internal/repos/testutil"
	"github.com/pusulaai/pusula-backend/internal/types"
)

func newGeminiFixture(t *testing.T, handler http.Handler) GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_BASE_URL", srv.URL)
	t.Setenv("GEMINI_MODEL", "test-model")
	t.Setenv("GEMINI_MAX_RETRIES", "2")

	client, err := NewGeminiClient(testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	return client
}

func geminiReply(jsonText string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, jsonText)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_AI_API_KEY", "")
	if _, err := NewGeminiClient(testutil.Logger(t)); err == nil {
		t.Fatalf("NewGeminiClient without key should fail")
	}
}

func TestAnalyzeTranscriptParsesStructuredOutput(t *testing.T) {
	client := newGeminiFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, geminiReply(`{"mainTopics":["robotics"],"relatedSectors":["automation"],"competencyRequirements":["electronics"],"jobMarketFit":"high","detailedAnalysis":"Solid engineering content."}`))
	}))

	analysis, err := client.AnalyzeTranscript(context.Background(), "transcript", "Robotics 101")
	if err != nil {
		t.Fatalf("AnalyzeTranscript: %v", err)
	}
	if analysis.JobMarketFit != types.JobMarketFitHigh || len(analysis.MainTopics) != 1 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
}

func TestGenerateJSONRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newGeminiFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, geminiReply(`[{"career":"Robotics Engineer","matchScore":90,"reasoning":"fit","requiredSkills":[],"careerPath":[],"companies":[]}]`))
	}))

	matches, err := client.MatchCareers(context.Background(), &types.GeminiAnalysis{JobMarketFit: types.JobMarketFitHigh})
	if err != nil {
		t.Fatalf("MatchCareers: %v", err)
	}
	if len(matches) != 1 || matches[0].Career != "Robotics Engineer" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls: want 2, got %d", got)
	}
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newGeminiFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	if _, err := client.AnalyzeTranscript(context.Background(), "transcript", ""); err == nil {
		t.Fatalf("AnalyzeTranscript should fail on 400")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls: want 1, got %d", got)
	}
}

func TestMatchCareersRejectsEmptyCandidates(t *testing.T) {
	client := newGeminiFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, geminiReply(`[]`))
	}))

	if _, err := client.MatchCareers(context.Background(), &types.GeminiAnalysis{}); err == nil {
		t.Fatalf("MatchCareers with no candidates should fail")
	}
}

func TestStudentReportAttachesMatchesAndCourses(t *testing.T) {
	client := newGeminiFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, geminiReply(`{"videoTopic":"","mainTopics":["robotics"],"careerRoadmap":{"title":"Path","steps":["study"],"timeline":"2 years"},"skillDevelopment":{"technical":["c"],"soft":["teamwork"]},"nextActions":["enroll"]}`))
	}))

	matches := []types.CareerMatch{
		{Career: "Low", MatchScore: 10},
		{Career: "High", MatchScore: 95},
		{Career: "Mid", MatchScore: 50},
		{Career: "Lowest", MatchScore: 5},
	}
	courses := []types.BTKCourse{{Title: "Robotics and Embedded Systems"}}

	report, err := client.GenerateStudentReport(context.Background(), "Robotics 101", &types.GeminiAnalysis{}, matches, courses)
	if err != nil {
		t.Fatalf("GenerateStudentReport: %v", err)
	}
	if report.VideoTopic != "Robotics 101" {
		t.Fatalf("empty videoTopic should fall back to the title, got %q", report.VideoTopic)
	}
	if len(report.CareerAreas) != 3 || report.CareerAreas[0].Career != "High" {
		t.Fatalf("career areas not top-3 by score: %+v", report.CareerAreas)
	}
	if len(report.RecommendedCourses) != 1 {
		t.Fatalf("courses not attached: %+v", report.RecommendedCourses)
	}
}
