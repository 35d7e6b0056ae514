package types

// Job market fit levels returned by the analysis model.
const (
	JobMarketFitHigh   = "high"
	JobMarketFitMedium = "medium"
	JobMarketFitLow    = "low"
)

// GeminiAnalysis is the structured result of the transcript analysis step.
type GeminiAnalysis struct {
	MainTopics             []string `json:"mainTopics"`
	RelatedSectors         []string `json:"relatedSectors"`
	CompetencyRequirements []string `json:"competencyRequirements"`
	JobMarketFit           string   `json:"jobMarketFit"`
	DetailedAnalysis       string   `json:"detailedAnalysis"`
}

// CareerMatch is one ranked career candidate produced by the matching step.
type CareerMatch struct {
	Career         string   `json:"career"`
	MatchScore     float64  `json:"matchScore"`
	Reasoning      string   `json:"reasoning"`
	RequiredSkills []string `json:"requiredSkills"`
	CareerPath     []string `json:"careerPath"`
	Companies      []string `json:"companies"`
}

type CareerRoadmap struct {
	Title    string   `json:"title"`
	Steps    []string `json:"steps"`
	Timeline string   `json:"timeline"`
}

type SkillDevelopment struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
}

// StudentReport is the learner-facing report generated in step six.
type StudentReport struct {
	VideoTopic         string           `json:"videoTopic"`
	MainTopics         []string         `json:"mainTopics"`
	CareerAreas        []CareerMatch    `json:"careerAreas"`
	RecommendedCourses []BTKCourse      `json:"recommendedCourses"`
	CareerRoadmap      CareerRoadmap    `json:"careerRoadmap"`
	SkillDevelopment   SkillDevelopment `json:"skillDevelopment"`
	NextActions        []string         `json:"nextActions"`
}

// ParentReport is the guardian-facing report generated in step seven.
type ParentReport struct {
	ChildInterests            []string `json:"childInterests"`
	CareerPotential           string   `json:"careerPotential"`
	SupportSuggestions        []string `json:"supportSuggestions"`
	UniversityRecommendations []string `json:"universityRecommendations"`
	HomeActivities            []string `json:"homeActivities"`
	DevelopmentAreas          []string `json:"developmentAreas"`
	IndustryInsights          string   `json:"industryInsights"`
}
