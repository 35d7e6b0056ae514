package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pusulaai/pusula-backend/internal/logger"
)

// VideoDetails is the metadata fetched for a submitted link.
type VideoDetails struct {
	Title       string
	Description string
	Duration    string
}

// YouTubeClient is the transcript-extraction adapter.
type YouTubeClient interface {
	ValidateURL(videoURL string) bool
	ExtractVideoID(videoURL string) string
	GetVideoDetails(ctx context.Context, videoURL string) (*VideoDetails, error)
	ExtractTranscript(ctx context.Context, videoURL string) (string, error)
}

var (
	youtubeURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+`)
	videoIDPattern    = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`)
	bracketedPattern  = regexp.MustCompile(`\[.*?\]`)
)

type youtubeClient struct {
	log         *logger.Logger
	apiKey      string
	dataBaseURL string
	captionsURL string
	captionLang string
	httpClient  *http.Client
}

func NewYouTubeClient(log *logger.Logger) YouTubeClient {
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	dataBaseURL := os.Getenv("YOUTUBE_DATA_BASE_URL")
	if dataBaseURL == "" {
		dataBaseURL = "https://www.googleapis.com"
	}
	captionsURL := os.Getenv("YOUTUBE_CAPTIONS_BASE_URL")
	if captionsURL == "" {
		captionsURL = "https://video.google.com"
	}
	captionLang := os.Getenv("YOUTUBE_CAPTION_LANG")
	if captionLang == "" {
		captionLang = "tr"
	}

	return &youtubeClient{
		log:         log.With("service", "YouTubeClient"),
		apiKey:      apiKey,
		dataBaseURL: dataBaseURL,
		captionsURL: captionsURL,
		captionLang: captionLang,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *youtubeClient) ValidateURL(videoURL string) bool {
	return youtubeURLPattern.MatchString(videoURL)
}

func (c *youtubeClient) ExtractVideoID(videoURL string) string {
	match := videoIDPattern.FindStringSubmatch(videoURL)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

type videoListResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *youtubeClient) GetVideoDetails(ctx context.Context, videoURL string) (*VideoDetails, error) {
	if !c.ValidateURL(videoURL) {
		return nil, fmt.Errorf("invalid youtube url")
	}
	videoID := c.ExtractVideoID(videoURL)
	if videoID == "" {
		return nil, fmt.Errorf("could not extract video id")
	}

	apiURL := fmt.Sprintf("%s/youtube/v3/videos?id=%s&key=%s&part=snippet,contentDetails",
		c.dataBaseURL, url.QueryEscape(videoID), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube api error: %d", resp.StatusCode)
	}

	var parsed videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("youtube api decode: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("video not found")
	}

	item := parsed.Items[0]
	return &VideoDetails{
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Duration:    item.ContentDetails.Duration,
	}, nil
}

type timedTextResponse struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// ExtractTranscript fetches captions in the preferred language, then
// English, then falls back to the video description.
func (c *youtubeClient) ExtractTranscript(ctx context.Context, videoURL string) (string, error) {
	details, err := c.GetVideoDetails(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("could not fetch video transcript: %w", err)
	}
	videoID := c.ExtractVideoID(videoURL)

	langs := []string{c.captionLang}
	if c.captionLang != "en" {
		langs = append(langs, "en")
	}
	for _, lang := range langs {
		transcript, err := c.fetchCaptions(ctx, videoID, lang)
		if err != nil {
			c.log.Debug("No captions for language", "videoID", videoID, "lang", lang, "error", err)
			continue
		}
		if len(transcript) > 50 {
			return transcript, nil
		}
	}

	if len(details.Description) > 100 {
		return fmt.Sprintf("Video description (no transcript available): %s", details.Description), nil
	}

	return fmt.Sprintf("Video title: %q\nVideo duration: %s\n\nNo automatic transcript is available for this video; the analysis is based on the title and description.\n\nDescription: %s",
		details.Title, formatISODuration(details.Duration), details.Description), nil
}

func (c *youtubeClient) fetchCaptions(ctx context.Context, videoID, lang string) (string, error) {
	captionsURL := fmt.Sprintf("%s/timedtext?lang=%s&v=%s", c.captionsURL, url.QueryEscape(lang), url.QueryEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionsURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext error: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty captions body")
	}

	var parsed timedTextResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("timedtext decode: %w", err)
	}
	if len(parsed.Texts) == 0 {
		return "", fmt.Errorf("no caption segments")
	}

	parts := make([]string, 0, len(parsed.Texts))
	for _, t := range parsed.Texts {
		parts = append(parts, html.UnescapeString(t.Value))
	}
	transcript := strings.Join(parts, " ")
	transcript = bracketedPattern.ReplaceAllString(transcript, "")
	return strings.TrimSpace(transcript), nil
}

var isoDurationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

func formatISODuration(duration string) string {
	match := isoDurationPattern.FindStringSubmatch(duration)
	if match == nil {
		return "unknown"
	}
	var parts []string
	if match[1] != "" {
		parts = append(parts, match[1]+"h")
	}
	if match[2] != "" {
		parts = append(parts, match[2]+"m")
	}
	if match[3] != "" {
		parts = append(parts, match[3]+"s")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " ")
}
