package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/repos"
	"github.com/pusulaai/pusula-backend/internal/types"
)

const maxRecommendedCourses = 5

// CourseRanker scores a course against the extracted keywords. Higher is
// better; zero means no match. Pluggable so deployments can swap in a
// smarter ranking without touching the service.
type CourseRanker func(course *types.BTKCourse, keywords []string) int

// BTKCourseService matches catalog courses to the interests extracted from
// a video and seeds the catalog on first boot.
type BTKCourseService interface {
	SearchCourses(ctx context.Context, keywords []string) ([]types.BTKCourse, error)
	GetCoursesByCategory(ctx context.Context, category string) ([]types.BTKCourse, error)
	EnsureCatalog(ctx context.Context) error
}

type btkCourseService struct {
	log    *logger.Logger
	repo   repos.BTKCourseRepo
	ranker CourseRanker
}

func NewBTKCourseService(baseLog *logger.Logger, repo repos.BTKCourseRepo, ranker CourseRanker) BTKCourseService {
	if ranker == nil {
		ranker = DefaultCourseRanker
	}
	return &btkCourseService{
		log:    baseLog.With("service", "BTKCourseService"),
		repo:   repo,
		ranker: ranker,
	}
}

// DefaultCourseRanker counts case-insensitive substring hits of each keyword
// across title, description, category and the keyword list.
func DefaultCourseRanker(course *types.BTKCourse, keywords []string) int {
	haystack := strings.ToLower(course.Title + " " + course.Description + " " + course.Category)
	var courseKeywords []string
	if err := course.KeywordList(&courseKeywords); err == nil {
		haystack += " " + strings.ToLower(strings.Join(courseKeywords, " "))
	}

	score := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			score++
		}
	}
	return score
}

func (s *btkCourseService) SearchCourses(ctx context.Context, keywords []string) ([]types.BTKCourse, error) {
	active, err := s.repo.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}

	type scored struct {
		course *types.BTKCourse
		score  int
	}
	var hits []scored
	for _, course := range active {
		if sc := s.ranker(course, keywords); sc > 0 {
			hits = append(hits, scored{course: course, score: sc})
		}
	}

	// Stable selection sort keeps the repo's title ordering among ties.
	out := make([]types.BTKCourse, 0, maxRecommendedCourses)
	for len(hits) > 0 && len(out) < maxRecommendedCourses {
		best := 0
		for i := 1; i < len(hits); i++ {
			if hits[i].score > hits[best].score {
				best = i
			}
		}
		out = append(out, *hits[best].course)
		hits = append(hits[:best], hits[best+1:]...)
	}

	if len(out) == 0 {
		// Nothing matched; fall back to a general slice of the catalog so
		// the student report never ships without course suggestions.
		for i, course := range active {
			if i >= maxRecommendedCourses {
				break
			}
			out = append(out, *course)
		}
	}
	return out, nil
}

func (s *btkCourseService) GetCoursesByCategory(ctx context.Context, category string) ([]types.BTKCourse, error) {
	courses, err := s.repo.ListByCategory(ctx, nil, category)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	out := make([]types.BTKCourse, 0, len(courses))
	for _, course := range courses {
		out = append(out, *course)
	}
	return out, nil
}

// EnsureCatalog seeds the built-in course catalog when the table is empty.
func (s *btkCourseService) EnsureCatalog(ctx context.Context) error {
	count, err := s.repo.CountActive(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog count failed: %w", err)
	}
	if count > 0 {
		return nil
	}

	s.log.Info("Seeding course catalog")
	seed := defaultCatalog()
	if _, err := s.repo.Create(ctx, nil, seed); err != nil {
		return fmt.Errorf("catalog seed failed: %w", err)
	}
	return nil
}

func mustKeywords(words ...string) datatypes.JSON {
	return types.MustJSONStrings(words...)
}

func defaultCatalog() []*types.BTKCourse {
	return []*types.BTKCourse{
		{
			Title:       "Introduction to Python Programming",
			Description: "Learn programming fundamentals with Python: variables, loops, functions and basic data structures.",
			Category:    "Software Development",
			Keywords:    mustKeywords("python", "programming", "software", "coding", "algorithm"),
			Duration:    "40 hours",
			Level:       "Beginner",
			URL:         "https://www.btkakademi.gov.tr/portal/course/python-programlama",
			IsActive:    true,
		},
		{
			Title:       "Web Development with HTML, CSS and JavaScript",
			Description: "Build modern, responsive web pages from scratch and learn the foundations of front-end development.",
			Category:    "Web Development",
			Keywords:    mustKeywords("web", "html", "css", "javascript", "frontend", "design"),
			Duration:    "60 hours",
			Level:       "Beginner",
			URL:         "https://www.btkakademi.gov.tr/portal/course/web-gelistirme",
			IsActive:    true,
		},
		{
			Title:       "Data Science and Machine Learning Fundamentals",
			Description: "Work with real datasets, learn statistics, data visualization and introductory machine learning models.",
			Category:    "Data Science",
			Keywords:    mustKeywords("data", "machine learning", "statistics", "analysis", "ai", "artificial intelligence"),
			Duration:    "80 hours",
			Level:       "Intermediate",
			URL:         "https://www.btkakademi.gov.tr/portal/course/veri-bilimi",
			IsActive:    true,
		},
		{
			Title:       "Introduction to Cyber Security",
			Description: "Understand common attack vectors, network security basics and safe computing practices.",
			Category:    "Cyber Security",
			Keywords:    mustKeywords("security", "cyber", "network", "hacking", "defense"),
			Duration:    "50 hours",
			Level:       "Beginner",
			URL:         "https://www.btkakademi.gov.tr/portal/course/siber-guvenlik",
			IsActive:    true,
		},
		{
			Title:       "Mobile App Development with Flutter",
			Description: "Develop cross-platform mobile applications for Android and iOS using Flutter and Dart.",
			Category:    "Mobile Development",
			Keywords:    mustKeywords("mobile", "flutter", "dart", "android", "ios", "app"),
			Duration:    "70 hours",
			Level:       "Intermediate",
			URL:         "https://www.btkakademi.gov.tr/portal/course/flutter",
			IsActive:    true,
		},
		{
			Title:       "Digital Marketing and Social Media Management",
			Description: "Plan campaigns, analyze audiences and manage brand presence across social platforms.",
			Category:    "Digital Marketing",
			Keywords:    mustKeywords("marketing", "social media", "advertising", "brand", "content"),
			Duration:    "35 hours",
			Level:       "Beginner",
			URL:         "https://www.btkakademi.gov.tr/portal/course/dijital-pazarlama",
			IsActive:    true,
		},
		{
			Title:       "Graphic Design Fundamentals",
			Description: "Learn visual design principles, color theory, typography and industry design tools.",
			Category:    "Design",
			Keywords:    mustKeywords("design", "graphic", "visual", "creative", "art", "typography"),
			Duration:    "45 hours",
			Level:       "Beginner",
			URL:         "https://www.btkakademi.gov.tr/portal/course/grafik-tasarim",
			IsActive:    true,
		},
		{
			Title:       "Cloud Computing and DevOps Practices",
			Description: "Deploy and operate applications on cloud platforms; learn containers, CI/CD and infrastructure automation.",
			Category:    "Cloud and Infrastructure",
			Keywords:    mustKeywords("cloud", "devops", "docker", "kubernetes", "infrastructure", "deployment"),
			Duration:    "65 hours",
			Level:       "Advanced",
			URL:         "https://www.btkakademi.gov.tr/portal/course/bulut-bilisim",
			IsActive:    true,
		},
		{
			Title:       "Game Development with Unity",
			Description: "Build 2D and 3D games with the Unity engine and C#; covers physics, animation and publishing.",
			Category:    "Game Development",
			Keywords:    mustKeywords("game", "unity", "3d", "animation", "csharp", "simulation"),
			Duration:    "75 hours",
			Level:       "Intermediate",
			URL:         "https://www.btkakademi.gov.tr/portal/course/unity",
			IsActive:    true,
		},
		{
			Title:       "Robotics and Embedded Systems",
			Description: "Program microcontrollers, read sensors and build simple robotics projects with Arduino.",
			Category:    "Electronics and Robotics",
			Keywords:    mustKeywords("robotics", "arduino", "electronics", "embedded", "sensor", "engineering"),
			Duration:    "55 hours",
			Level:       "Intermediate",
			URL:         "https://www.btkakademi.gov.tr/portal/course/robotik",
			IsActive:    true,
		},
	}
}
