// AngelaMos | 2026
// entity.go

package strategy

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ModeConservative = "conservative"
	ModeAggressive   = "aggressive"
)

// Strategy is the persisted generation artifact. Immutable once created;
// edits produce a new revision and deletion is a soft flag.
type Strategy struct {
	ID               string            `db:"id"`
	UserID           string            `db:"user_id"`
	Goal             string            `db:"goal"`
	Audience         string            `db:"audience"`
	Industry         string            `db:"industry"`
	Platform         string            `db:"platform"`
	ContentType      string            `db:"content_type"`
	Experience       string            `db:"experience"`
	Mode             string            `db:"strategy_mode"`
	Revision         int               `db:"revision"`
	CacheKey         string            `db:"cache_key"`
	Overview         StrategicOverview `db:"strategic_overview"`
	Pillars          ContentPillars    `db:"content_pillars"`
	Calendar         ContentCalendar   `db:"content_calendar"`
	Keywords         KeywordSet        `db:"keywords"`
	ROI              ROIPrediction     `db:"roi_prediction"`
	DifficultyScore  int               `db:"difficulty_score"`
	ConfidenceScore  int               `db:"confidence_score"`
	GrowthScore      int               `db:"growth_velocity_score"`
	TokenUsage       int               `db:"token_usage"`
	GenerationTimeMS int64             `db:"generation_time_ms"`
	CreatedAt        time.Time         `db:"created_at"`
	DeletedAt        *time.Time        `db:"deleted_at"`
}

func (s *Strategy) IsDeleted() bool {
	return s.DeletedAt != nil
}

type StrategicOverview struct {
	GrowthObjective       string `json:"growth_objective"`
	TargetPersonaSnapshot string `json:"target_persona_snapshot"`
	PositioningAngle      string `json:"positioning_angle"`
	CompetitiveEdge       string `json:"competitive_edge"`
}

type SamplePost struct {
	Format            string `json:"format"`
	Hook              string `json:"hook"`
	ScriptOrStructure string `json:"script_or_structure"`
	Caption           string `json:"caption"`
	CTA               string `json:"cta"`
	ImagePrompt       string `json:"image_prompt,omitempty"`
}

type ContentPillar struct {
	PillarName  string       `json:"pillar_name"`
	WhyItWorks  string       `json:"why_it_works"`
	SamplePosts []SamplePost `json:"sample_posts"`
}

type ContentPillars []ContentPillar

type CalendarEntry struct {
	Day    int    `json:"day"`
	Format string `json:"format"`
	Theme  string `json:"theme"`
}

type ContentCalendar []CalendarEntry

type KeywordSet struct {
	Primary  []string `json:"primary"`
	LongTail []string `json:"long_tail"`
	Hashtags []string `json:"hashtags"`
}

type ROIPrediction struct {
	TrafficLiftPercentage  string `json:"traffic_lift_percentage"`
	EngagementBoostPercent string `json:"engagement_boost_percentage"`
	EstimatedMonthlyReach  string `json:"estimated_monthly_reach"`
	ConversionRateEstimate string `json:"conversion_rate_estimate"`
	RiskLevel              string `json:"risk_level"`
}

// scoresForMode maps the request mode to the fixed difficulty, confidence
// and growth-velocity scores. Scores are mode-keyed constants, never derived
// from document content.
func scoresForMode(mode string) (difficulty, confidence, growth int) {
	if mode == ModeAggressive {
		return 8, 70, 90
	}
	return 4, 85, 60
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func jsonScan(dest any, src any) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dest)
	case string:
		return json.Unmarshal([]byte(data), dest)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

func (o StrategicOverview) Value() (driver.Value, error) { return jsonValue(o) }
func (o *StrategicOverview) Scan(src any) error          { return jsonScan(o, src) }

func (p ContentPillars) Value() (driver.Value, error) { return jsonValue(p) }
func (p *ContentPillars) Scan(src any) error          { return jsonScan(p, src) }

func (c ContentCalendar) Value() (driver.Value, error) { return jsonValue(c) }
func (c *ContentCalendar) Scan(src any) error          { return jsonScan(c, src) }

func (k KeywordSet) Value() (driver.Value, error) { return jsonValue(k) }
func (k *KeywordSet) Scan(src any) error          { return jsonScan(k, src) }

func (r ROIPrediction) Value() (driver.Value, error) { return jsonValue(r) }
func (r *ROIPrediction) Scan(src any) error          { return jsonScan(r, src) }
