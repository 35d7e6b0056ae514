package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/types"
	"github.com/pusulaai/pusula-backend/internal/utils"
)

// GeminiClient is the AI analysis adapter: transcript analysis, career
// matching and the two report generators.
type GeminiClient interface {
	AnalyzeTranscript(ctx context.Context, transcript, videoTitle string) (*types.GeminiAnalysis, error)
	MatchCareers(ctx context.Context, analysis *types.GeminiAnalysis) ([]types.CareerMatch, error)
	GenerateStudentReport(ctx context.Context, videoTitle string, analysis *types.GeminiAnalysis, matches []types.CareerMatch, courses []types.BTKCourse) (*types.StudentReport, error)
	GenerateParentReport(ctx context.Context, videoTitle string, analysis *types.GeminiAnalysis, matches []types.CareerMatch) (*types.ParentReport, error)
}

type geminiClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

func NewGeminiClient(log *logger.Logger) (GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_AI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-pro"
	}

	timeoutSec := utils.GetEnvAsInt("GEMINI_TIMEOUT_SECONDS", 120, log)
	if timeoutSec <= 0 {
		timeoutSec = 120
	}
	maxRetries := utils.GetEnvAsInt("GEMINI_MAX_RETRIES", 3, log)
	if maxRetries < 0 {
		maxRetries = 3
	}

	return &geminiClient{
		log:        log.With("service", "GeminiClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *geminiHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

type generateContentRequest struct {
	SystemInstruction *contentBlock   `json:"system_instruction,omitempty"`
	Contents          []contentBlock  `json:"contents"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
}

type contentBlock struct {
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text string `json:"text"`
}

type generateConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *geminiClient) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// generateJSON runs one structured-output generation, retrying transient
// failures with capped jittered backoff, and decodes the model JSON into out.
func (c *geminiClient) generateJSON(ctx context.Context, system, user string, schema map[string]any, out any) error {
	reqBody := generateContentRequest{
		SystemInstruction: &contentBlock{Parts: []contentPart{{Text: system}}},
		Contents:          []contentBlock{{Parts: []contentPart{{Text: user}}}},
		GenerationConfig: &generateConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}

	backoff := 1 * time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, reqBody)
		if err == nil {
			var parsed generateContentResponse
			if uErr := json.Unmarshal(raw, &parsed); uErr != nil {
				return fmt.Errorf("gemini decode error: %w", uErr)
			}
			var jsonText string
			for _, cand := range parsed.Candidates {
				for _, part := range cand.Content.Parts {
					jsonText += part.Text
				}
			}
			if jsonText == "" {
				return fmt.Errorf("empty response from gemini")
			}
			if uErr := json.Unmarshal([]byte(jsonText), out); uErr != nil {
				return fmt.Errorf("failed to parse model JSON: %w; text=%s", uErr, jsonText)
			}
			return nil
		}

		if !isRetryableErr(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
			if ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Gemini request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func stringArraySchema() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func (c *geminiClient) AnalyzeTranscript(ctx context.Context, transcript, videoTitle string) (*types.GeminiAnalysis, error) {
	system := `You are a career counselor specializing in the national education system.
You analyze educational video content and surface real-life career connections for students.

Analyze the video transcript and extract:
1. Main topics (technical and academic subjects covered)
2. Related sectors (industries where these topics are applied)
3. Competency requirements (skills needed to work in this field)
4. Job market fit (high/medium/low)
5. Detailed analysis (an explanatory paragraph for the student)

Respond in JSON.`

	var prompt strings.Builder
	if videoTitle != "" {
		fmt.Fprintf(&prompt, "Video title: %s\n\n", videoTitle)
	}
	fmt.Fprintf(&prompt, "Transcript:\n%s", transcript)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mainTopics":             stringArraySchema(),
			"relatedSectors":         stringArraySchema(),
			"competencyRequirements": stringArraySchema(),
			"jobMarketFit":           map[string]any{"type": "string", "enum": []string{types.JobMarketFitHigh, types.JobMarketFitMedium, types.JobMarketFitLow}},
			"detailedAnalysis":       map[string]any{"type": "string"},
		},
		"required": []string{"mainTopics", "relatedSectors", "competencyRequirements", "jobMarketFit", "detailedAnalysis"},
	}

	var analysis types.GeminiAnalysis
	if err := c.generateJSON(ctx, system, prompt.String(), schema, &analysis); err != nil {
		return nil, fmt.Errorf("video analysis failed: %w", err)
	}
	return &analysis, nil
}

func (c *geminiClient) MatchCareers(ctx context.Context, analysis *types.GeminiAnalysis) ([]types.CareerMatch, error) {
	system := `You are an expert on career opportunities in the national job market.
Based on the video analysis, identify the five most suitable career areas with details for each:
1. Career name
2. Match score (0-100)
3. Reasoning for the fit
4. Required skills
5. Career path steps
6. Example employers in the field

Respond in JSON.`

	prompt := fmt.Sprintf(`Analysis results:
Main topics: %s
Related sectors: %s
Competency requirements: %s
Job market fit: %s`,
		strings.Join(analysis.MainTopics, ", "),
		strings.Join(analysis.RelatedSectors, ", "),
		strings.Join(analysis.CompetencyRequirements, ", "),
		analysis.JobMarketFit)

	schema := map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"career":         map[string]any{"type": "string"},
				"matchScore":     map[string]any{"type": "number"},
				"reasoning":      map[string]any{"type": "string"},
				"requiredSkills": stringArraySchema(),
				"careerPath":     stringArraySchema(),
				"companies":      stringArraySchema(),
			},
			"required": []string{"career", "matchScore", "reasoning", "requiredSkills", "careerPath", "companies"},
		},
	}

	var matches []types.CareerMatch
	if err := c.generateJSON(ctx, system, prompt, schema, &matches); err != nil {
		return nil, fmt.Errorf("career matching failed: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("career matching returned no candidates")
	}
	return matches, nil
}

func (c *geminiClient) GenerateStudentReport(ctx context.Context, videoTitle string, analysis *types.GeminiAnalysis, matches []types.CareerMatch, courses []types.BTKCourse) (*types.StudentReport, error) {
	system := `You prepare career guides for students.
Build a comprehensive student report from the analysis results, containing:
1. A summary of the video topic
2. The detected main topics
3. The recommended career areas (top three by score)
4. The recommended courses
5. A career roadmap with concrete steps and a timeline
6. Technical and soft skill development suggestions
7. Concrete next actions

Respond in JSON.`

	courseTitles := make([]string, 0, len(courses))
	for _, course := range courses {
		courseTitles = append(courseTitles, course.Title)
	}
	matchSummaries := make([]string, 0, len(matches))
	for _, m := range matches {
		matchSummaries = append(matchSummaries, fmt.Sprintf("%s (%.0f)", m.Career, m.MatchScore))
	}

	prompt := fmt.Sprintf(`Video title: %s
Main topics: %s
Detailed analysis: %s
Career matches: %s
Recommended courses: %s`,
		videoTitle,
		strings.Join(analysis.MainTopics, ", "),
		analysis.DetailedAnalysis,
		strings.Join(matchSummaries, ", "),
		strings.Join(courseTitles, ", "))

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"videoTopic": map[string]any{"type": "string"},
			"mainTopics": stringArraySchema(),
			"careerRoadmap": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":    map[string]any{"type": "string"},
					"steps":    stringArraySchema(),
					"timeline": map[string]any{"type": "string"},
				},
				"required": []string{"title", "steps", "timeline"},
			},
			"skillDevelopment": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"technical": stringArraySchema(),
					"soft":      stringArraySchema(),
				},
				"required": []string{"technical", "soft"},
			},
			"nextActions": stringArraySchema(),
		},
		"required": []string{"videoTopic", "mainTopics", "careerRoadmap", "skillDevelopment", "nextActions"},
	}

	var report types.StudentReport
	if err := c.generateJSON(ctx, system, prompt, schema, &report); err != nil {
		return nil, fmt.Errorf("student report generation failed: %w", err)
	}

	// The structured sections come from the model; the ranked careers and
	// course records are attached verbatim from earlier steps.
	report.CareerAreas = topCareerMatches(matches, 3)
	report.RecommendedCourses = courses
	if report.VideoTopic == "" {
		report.VideoTopic = videoTitle
	}
	return &report, nil
}

func (c *geminiClient) GenerateParentReport(ctx context.Context, videoTitle string, analysis *types.GeminiAnalysis, matches []types.CareerMatch) (*types.ParentReport, error) {
	system := `You prepare guidance reports for parents and guardians.
Build a supportive parent report from the analysis results, containing:
1. The child's observed interests
2. An assessment of career potential
3. Suggestions for supporting the child
4. University programs worth considering
5. Activities to try at home
6. Development areas to watch
7. Industry insights relevant to these interests

Respond in JSON.`

	matchSummaries := make([]string, 0, len(matches))
	for _, m := range matches {
		matchSummaries = append(matchSummaries, fmt.Sprintf("%s (%.0f)", m.Career, m.MatchScore))
	}

	prompt := fmt.Sprintf(`Video title: %s
Main topics: %s
Related sectors: %s
Detailed analysis: %s
Career matches: %s`,
		videoTitle,
		strings.Join(analysis.MainTopics, ", "),
		strings.Join(analysis.RelatedSectors, ", "),
		analysis.DetailedAnalysis,
		strings.Join(matchSummaries, ", "))

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"childInterests":            stringArraySchema(),
			"careerPotential":           map[string]any{"type": "string"},
			"supportSuggestions":        stringArraySchema(),
			"universityRecommendations": stringArraySchema(),
			"homeActivities":            stringArraySchema(),
			"developmentAreas":          stringArraySchema(),
			"industryInsights":          map[string]any{"type": "string"},
		},
		"required": []string{"childInterests", "careerPotential", "supportSuggestions", "universityRecommendations", "homeActivities", "developmentAreas", "industryInsights"},
	}

	var report types.ParentReport
	if err := c.generateJSON(ctx, system, prompt, schema, &report); err != nil {
		return nil, fmt.Errorf("parent report generation failed: %w", err)
	}
	return &report, nil
}

func topCareerMatches(matches []types.CareerMatch, n int) []types.CareerMatch {
	out := make([]types.CareerMatch, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
