// AngelaMos | 2026
// service.go

package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/planvix/planvix-api/internal/quota"
)

// QuotaExceededError carries the losing decision so the transport
// layer can render limit, usage and reset time in the 429 body.
type QuotaExceededError struct {
	Decision *quota.Decision
}

func (e *QuotaExceededError) Error() string {
	return e.Decision.Message
}

// UsageLedger is the admission side of the quota ledger.
type UsageLedger interface {
	Check(ctx context.Context, userID, tier string) (*quota.Decision, error)
	CheckAndRecord(ctx context.Context, userID, tier string) (*quota.Decision, error)
	Usage(ctx context.Context, userID, tier string) (*quota.Snapshot, error)
}

// DocumentCache is the fingerprint-keyed document store. Both methods
// are failure-absorbing; Get reports only hit or miss.
type DocumentCache interface {
	Get(ctx context.Context, fingerprint string) (*Document, bool)
	Put(ctx context.Context, fingerprint string, doc *Document)
}

type Service struct {
	repo      Repository
	ledger    UsageLedger
	cache     DocumentCache
	generator Generator
	versioner *Versioner
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	ledger UsageLedger,
	cache DocumentCache,
	generator Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		cache:     cache,
		generator: generator,
		versioner: NewVersioner(repo),
		logger:    logger,
		now:       time.Now,
	}
}

// Generate runs the admission pipeline: quota gate, cache lookup,
// atomic usage recording, generation, persistence. Usage is charged
// exactly once per generation attempt, before the model is called,
// and never for a cache hit.
func (s *Service) Generate(
	ctx context.Context,
	userID, tier string,
	req *GenerateStrategyRequest,
) (*GenerateResponse, error) {
	req.Normalize()

	decision, err := s.ledger.Check(ctx, userID, tier)
	if err != nil {
		return nil, fmt.Errorf("quota check: %w", err)
	}
	if decision.Exceeded {
		return nil, &QuotaExceededError{Decision: decision}
	}

	fingerprint := Fingerprint(req)

	if doc, ok := s.cache.Get(ctx, fingerprint); ok {
		s.logger.Info("cache hit", "user_id", userID, "fingerprint", fingerprint)
		return &GenerateResponse{
			Strategy:       s.cachedView(req, doc, fingerprint),
			Cached:         true,
			GenerationTime: 0,
			Message:        "Strategy served from cache",
			Usage:          decision,
			Tier:           tier,
		}, nil
	}

	decision, err = s.ledger.CheckAndRecord(ctx, userID, tier)
	if err != nil {
		return nil, fmt.Errorf("quota record: %w", err)
	}
	if decision.Exceeded {
		return nil, &QuotaExceededError{Decision: decision}
	}

	// Usage is charged from here on. Detach from the client's context
	// so a dropped connection does not abandon paid-for work; the
	// generator applies its own deadline.
	genCtx := context.WithoutCancel(ctx)

	start := s.now()
	doc, err := s.generator.Generate(genCtx, req)
	if err != nil {
		s.logger.Error("generation failed",
			"user_id", userID,
			"fingerprint", fingerprint,
			"error", err,
		)
		return nil, err
	}
	elapsed := s.now().Sub(start)

	revision, err := s.versioner.NextRevision(genCtx, revisionScope{
		OwnerID:  userID,
		Goal:     req.Goal,
		Audience: req.Audience,
		Platform: req.Platform,
	})
	if err != nil {
		return nil, err
	}

	difficulty, confidence, growth := scoresForMode(req.Mode)

	record := &Strategy{
		ID:               uuid.NewString(),
		UserID:           userID,
		Goal:             req.Goal,
		Audience:         req.Audience,
		Industry:         req.Industry,
		Platform:         req.Platform,
		ContentType:      req.ContentType,
		Experience:       req.Experience,
		Mode:             req.Mode,
		Revision:         revision,
		CacheKey:         fingerprint,
		Overview:         doc.Overview,
		Pillars:          doc.Pillars,
		Calendar:         doc.Calendar,
		Keywords:         doc.Keywords,
		ROI:              doc.ROI,
		DifficultyScore:  difficulty,
		ConfidenceScore:  confidence,
		GrowthScore:      growth,
		TokenUsage:       doc.TokenUsage,
		GenerationTimeMS: elapsed.Milliseconds(),
	}

	if err := s.repo.Insert(genCtx, record); err != nil {
		return nil, err
	}

	s.cache.Put(genCtx, fingerprint, doc)

	s.logger.Info("strategy persisted",
		"user_id", userID,
		"strategy_id", record.ID,
		"revision", revision,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &GenerateResponse{
		Strategy:       ToStrategyResponse(record),
		Cached:         false,
		GenerationTime: elapsed.Seconds(),
		Message:        "Strategy generated successfully",
		Usage:          decision,
		Tier:           tier,
	}, nil
}

// cachedView builds an ephemeral response from a cached document.
// Nothing is persisted on a hit, so the view has no record identity.
func (s *Service) cachedView(
	req *GenerateStrategyRequest,
	doc *Document,
	fingerprint string,
) *StrategyResponse {
	difficulty, confidence, growth := scoresForMode(req.Mode)
	now := s.now()

	return &StrategyResponse{
		ID:          fingerprint,
		Goal:        req.Goal,
		Audience:    req.Audience,
		Industry:    req.Industry,
		Platform:    req.Platform,
		ContentType: req.ContentType,
		Experience:  req.Experience,
		Mode:        req.Mode,
		Metadata: StrategyMetadata{
			GeneratedAt:         now,
			DifficultyScore:     difficulty,
			ConfidenceScore:     confidence,
			GrowthVelocityScore: growth,
			TokenUsage:          doc.TokenUsage,
		},
		Overview:  doc.Overview,
		Pillars:   doc.Pillars,
		Calendar:  doc.Calendar,
		Keywords:  doc.Keywords,
		ROI:       doc.ROI,
		CreatedAt: now,
	}
}

func (s *Service) History(
	ctx context.Context,
	userID string,
	limit int,
) (*HistoryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	strategies, err := s.repo.ListByOwner(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := ToHistoryItems(strategies)
	return &HistoryResponse{History: items, Count: len(items)}, nil
}

func (s *Service) Get(
	ctx context.Context,
	id, userID string,
) (*StrategyResponse, error) {
	record, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	return ToStrategyResponse(record), nil
}

// Delete tombstones a strategy. A repeat delete reports success so
// clients can retry safely.
func (s *Service) Delete(ctx context.Context, id, userID string) (*DeleteResponse, error) {
	err := s.repo.SoftDelete(ctx, id, userID)
	if errors.Is(err, ErrAlreadyDeleted) {
		return &DeleteResponse{Deleted: true, Message: "Strategy already deleted"}, nil
	}
	if err != nil {
		return nil, err
	}

	return &DeleteResponse{Deleted: true, Message: "Strategy deleted"}, nil
}

func (s *Service) Usage(
	ctx context.Context,
	userID, tier string,
) (*UsageResponse, error) {
	snapshot, err := s.ledger.Usage(ctx, userID, tier)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UsageResponse{
		Tier:            tier,
		MonthlyUsed:     snapshot.MonthlyUsed,
		MonthlyLimit:    snapshot.MonthlyLimit,
		BurstUsed:       snapshot.BurstUsed,
		BurstLimit:      snapshot.BurstLimit,
		TotalStrategies: total,
	}, nil
}
