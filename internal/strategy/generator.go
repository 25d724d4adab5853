// AngelaMos | 2026
// generator.go

package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/planvix/planvix-api/internal/config"
)

var (
	// ErrGenerationFailed covers upstream model failures: transport
	// errors, timeouts, empty completions.
	ErrGenerationFailed = errors.New("strategy generation failed")

	// ErrIncompleteDocument means the model answered but the document
	// is missing required sections. Never cached, never persisted.
	ErrIncompleteDocument = errors.New("generated document incomplete")
)

// Document is the model's output for one request fingerprint. It is
// mode-agnostic: scores are attached later, at persistence time.
type Document struct {
	Overview   StrategicOverview `json:"strategic_overview"`
	Pillars    ContentPillars    `json:"content_pillars"`
	Calendar   ContentCalendar   `json:"content_calendar"`
	Keywords   KeywordSet        `json:"keywords"`
	ROI        ROIPrediction     `json:"roi_prediction"`
	TokenUsage int               `json:"token_usage"`
}

// Generator produces a complete strategy document for a request.
type Generator interface {
	Generate(ctx context.Context, req *GenerateStrategyRequest) (*Document, error)
}

type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *slog.Logger
}

func NewOpenAIGenerator(cfg config.GeneratorConfig, logger *slog.Logger) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

const systemPrompt = `You are a senior marketing strategist. Respond with a single JSON object matching the schema the user describes. No markdown fences, no commentary outside the JSON.`

func (g *OpenAIGenerator) Generate(ctx context.Context, req *GenerateStrategyRequest) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		Temperature:    g.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		g.logger.Error("completion request failed", "model", g.model, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	doc, err := parseDocument(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	doc.TokenUsage = resp.Usage.TotalTokens

	g.logger.Info("strategy generated",
		"model", g.model,
		"tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return doc, nil
}

func buildPrompt(req *GenerateStrategyRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a %s marketing strategy for the %s platform.\n\n", req.Industry, req.Platform)
	fmt.Fprintf(&b, "Goal: %s\n", req.Goal)
	fmt.Fprintf(&b, "Target audience: %s\n", req.Audience)
	fmt.Fprintf(&b, "Content type: %s\n", req.ContentType)
	fmt.Fprintf(&b, "Creator experience level: %s\n\n", req.Experience)

	b.WriteString(`Return a JSON object with exactly these keys:
"strategic_overview": {"growth_objective", "target_persona_snapshot", "positioning_angle", "competitive_edge"} (all strings),
"content_pillars": array of 3 objects {"pillar_name", "why_it_works", "sample_posts"} where sample_posts is an array of 2 objects {"format", "hook", "script_or_structure", "caption", "cta", "image_prompt"},
"content_calendar": array of 7 objects {"day" (integer 1-7), "format", "theme"},
"keywords": {"primary", "long_tail", "hashtags"} (each an array of 5+ strings),
"roi_prediction": {"traffic_lift_percentage", "engagement_boost_percentage", "estimated_monthly_reach", "conversion_rate_estimate", "risk_level"} (all strings).

Every field must be filled with specific, actionable content for this exact audience and platform.`)

	return b.String()
}

// parseDocument decodes and validates a completion. Models sometimes
// wrap JSON in code fences despite instructions, so fences are stripped
// before decoding.
func parseDocument(content string) (*Document, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var doc Document
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrGenerationFailed, err)
	}

	if err := validateDocument(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func validateDocument(doc *Document) error {
	switch {
	case doc.Overview.GrowthObjective == "":
		return fmt.Errorf("%w: missing strategic_overview", ErrIncompleteDocument)
	case len(doc.Pillars) == 0:
		return fmt.Errorf("%w: missing content_pillars", ErrIncompleteDocument)
	case len(doc.Calendar) == 0:
		return fmt.Errorf("%w: missing content_calendar", ErrIncompleteDocument)
	case len(doc.Keywords.Primary) == 0:
		return fmt.Errorf("%w: missing keywords", ErrIncompleteDocument)
	case doc.ROI.EstimatedMonthlyReach == "":
		return fmt.Errorf("%w: missing roi_prediction", ErrIncompleteDocument)
	}
	return nil
}
