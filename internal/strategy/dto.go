// AngelaMos | 2026
// dto.go

package strategy

import (
	"time"

	"github.com/planvix/planvix-api/internal/quota"
)

type GenerateStrategyRequest struct {
	Goal        string `json:"goal"         validate:"required,min=10,max=500"`
	Audience    string `json:"audience"     validate:"required,min=5,max=200"`
	Industry    string `json:"industry"     validate:"required,min=3,max=100"`
	Platform    string `json:"platform"     validate:"required,min=3,max=50"`
	ContentType string `json:"content_type" validate:"omitempty,max=50"`
	Experience  string `json:"experience"   validate:"omitempty,max=50"`
	Mode        string `json:"strategy_mode" validate:"omitempty,oneof=conservative aggressive"`
}

// Normalize fills the optional fields' defaults before validation-dependent
// work. Must run before the request is fingerprinted so that an omitted
// field and its explicit default produce the same cache key.
func (r *GenerateStrategyRequest) Normalize() {
	if r.ContentType == "" {
		r.ContentType = "Mixed Content"
	}
	if r.Experience == "" {
		r.Experience = "beginner"
	}
	if r.Mode == "" {
		r.Mode = ModeConservative
	}
}

type StrategyMetadata struct {
	GeneratedAt         time.Time `json:"generated_at"`
	DifficultyScore     int       `json:"difficulty_score"`
	ConfidenceScore     int       `json:"confidence_score"`
	GrowthVelocityScore int       `json:"growth_velocity_score"`
	TokenUsage          int       `json:"token_usage"`
}

type StrategyResponse struct {
	ID          string            `json:"id"`
	Goal        string            `json:"goal"`
	Audience    string            `json:"audience"`
	Industry    string            `json:"industry"`
	Platform    string            `json:"platform"`
	ContentType string            `json:"content_type"`
	Experience  string            `json:"experience"`
	Mode        string            `json:"strategy_mode"`
	Revision    int               `json:"revision"`
	Metadata    StrategyMetadata  `json:"metadata"`
	Overview    StrategicOverview `json:"strategic_overview"`
	Pillars     ContentPillars    `json:"content_pillars"`
	Calendar    ContentCalendar   `json:"content_calendar"`
	Keywords    KeywordSet        `json:"keywords"`
	ROI         ROIPrediction     `json:"roi_prediction"`
	CreatedAt   time.Time         `json:"created_at"`
}

type GenerateResponse struct {
	Strategy       *StrategyResponse `json:"strategy"`
	Cached         bool              `json:"cached"`
	GenerationTime float64           `json:"generation_time"`
	Message        string            `json:"message"`
	Usage          *quota.Decision   `json:"usage,omitempty"`
	Tier           string            `json:"tier"`
}

type HistoryItem struct {
	ID             string    `json:"id"`
	Goal           string    `json:"goal"`
	Audience       string    `json:"audience"`
	Industry       string    `json:"industry"`
	Platform       string    `json:"platform"`
	Mode           string    `json:"strategy_mode"`
	Revision       int       `json:"revision"`
	GenerationTime int64     `json:"generation_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

type HistoryResponse struct {
	History []HistoryItem `json:"history"`
	Count   int           `json:"count"`
}

type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

type UsageResponse struct {
	Tier            string `json:"tier"`
	MonthlyUsed     int    `json:"monthly_used"`
	MonthlyLimit    int    `json:"monthly_limit"`
	BurstUsed       int    `json:"burst_used"`
	BurstLimit      int    `json:"burst_limit"`
	TotalStrategies int    `json:"total_strategies"`
}

func ToStrategyResponse(s *Strategy) *StrategyResponse {
	return &StrategyResponse{
		ID:          s.ID,
		Goal:        s.Goal,
		Audience:    s.Audience,
		Industry:    s.Industry,
		Platform:    s.Platform,
		ContentType: s.ContentType,
		Experience:  s.Experience,
		Mode:        s.Mode,
		Revision:    s.Revision,
		Metadata: StrategyMetadata{
			GeneratedAt:         s.CreatedAt,
			DifficultyScore:     s.DifficultyScore,
			ConfidenceScore:     s.ConfidenceScore,
			GrowthVelocityScore: s.GrowthScore,
			TokenUsage:          s.TokenUsage,
		},
		Overview:  s.Overview,
		Pillars:   s.Pillars,
		Calendar:  s.Calendar,
		Keywords:  s.Keywords,
		ROI:       s.ROI,
		CreatedAt: s.CreatedAt,
	}
}

func ToHistoryItems(strategies []Strategy) []HistoryItem {
	items := make([]HistoryItem, 0, len(strategies))
	for _, s := range strategies {
		items = append(items, HistoryItem{
			ID:             s.ID,
			Goal:           s.Goal,
			Audience:       s.Audience,
			Industry:       s.Industry,
			Platform:       s.Platform,
			Mode:           s.Mode,
			Revision:       s.Revision,
			GenerationTime: s.GenerationTimeMS,
			CreatedAt:      s.CreatedAt,
		})
	}
	return items
}
