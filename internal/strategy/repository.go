// AngelaMos | 2026
// repository.go

package strategy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/planvix/planvix-api/internal/core"
)

// ErrAlreadyDeleted marks a soft-delete that found the record already
// tombstoned. Callers treat it as success for idempotence but can tell
// the two outcomes apart.
var ErrAlreadyDeleted = errors.New("strategy already deleted")

type Repository interface {
	Insert(ctx context.Context, s *Strategy) error
	GetByID(ctx context.Context, id, ownerID string) (*Strategy, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Strategy, error)
	SoftDelete(ctx context.Context, id, ownerID string) error
	LatestRevision(ctx context.Context, scope revisionScope) (int, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, s *Strategy) error {
	query := `
		INSERT INTO strategies (
			id, user_id, goal, audience, industry, platform,
			content_type, experience, strategy_mode, revision, cache_key,
			strategic_overview, content_pillars, content_calendar,
			keywords, roi_prediction,
			difficulty_score, confidence_score, growth_velocity_score,
			token_usage, generation_time_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID,
		s.UserID,
		s.Goal,
		s.Audience,
		s.Industry,
		s.Platform,
		s.ContentType,
		s.Experience,
		s.Mode,
		s.Revision,
		s.CacheKey,
		s.Overview,
		s.Pillars,
		s.Calendar,
		s.Keywords,
		s.ROI,
		s.DifficultyScore,
		s.ConfidenceScore,
		s.GrowthScore,
		s.TokenUsage,
		s.GenerationTimeMS,
	)
	if err != nil {
		return fmt.Errorf("insert strategy: %w", err)
	}

	return nil
}

// GetByID is ownership-scoped: a strategy belonging to another user is
// indistinguishable from one that does not exist.
func (r *repository) GetByID(
	ctx context.Context,
	id, ownerID string,
) (*Strategy, error) {
	query := `
		SELECT id, user_id, goal, audience, industry, platform,
		       content_type, experience, strategy_mode, revision, cache_key,
		       strategic_overview, content_pillars, content_calendar,
		       keywords, roi_prediction,
		       difficulty_score, confidence_score, growth_velocity_score,
		       token_usage, generation_time_ms, created_at, deleted_at
		FROM strategies
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	var s Strategy
	err := r.db.GetContext(ctx, &s, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get strategy: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy: %w", err)
	}

	return &s, nil
}

func (r *repository) ListByOwner(
	ctx context.Context,
	ownerID string,
	limit int,
) ([]Strategy, error) {
	query := `
		SELECT id, user_id, goal, audience, industry, platform,
		       content_type, experience, strategy_mode, revision, cache_key,
		       strategic_overview, content_pillars, content_calendar,
		       keywords, roi_prediction,
		       difficulty_score, confidence_score, growth_velocity_score,
		       token_usage, generation_time_ms, created_at, deleted_at
		FROM strategies
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2`

	strategies := []Strategy{}
	if err := r.db.SelectContext(ctx, &strategies, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}

	return strategies, nil
}

// SoftDelete tombstones a strategy. Repeating the call returns
// ErrAlreadyDeleted rather than ErrNotFound so the operation stays
// idempotent at the API surface.
func (r *repository) SoftDelete(ctx context.Context, id, ownerID string) error {
	query := `
		UPDATE strategies
		SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}

	if rows == 0 {
		existsQuery := `
			SELECT EXISTS(
				SELECT 1 FROM strategies
				WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL
			)`
		var tombstoned bool
		if err := r.db.GetContext(ctx, &tombstoned, existsQuery, id, ownerID); err != nil {
			return fmt.Errorf("delete strategy: %w", err)
		}
		if tombstoned {
			return ErrAlreadyDeleted
		}
		return fmt.Errorf("delete strategy: %w", core.ErrNotFound)
	}

	return nil
}

// LatestRevision returns the highest revision among non-deleted records
// in a (goal, audience, platform) lineage.
func (r *repository) LatestRevision(
	ctx context.Context,
	scope revisionScope,
) (int, error) {
	query := `
		SELECT revision
		FROM strategies
		WHERE user_id = $1 AND goal = $2 AND audience = $3 AND platform = $4
			AND deleted_at IS NULL
		ORDER BY revision DESC
		LIMIT 1`

	var revision int
	err := r.db.GetContext(ctx, &revision, query,
		scope.OwnerID, scope.Goal, scope.Audience, scope.Platform)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("latest revision: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("latest revision: %w", err)
	}

	return revision, nil
}

func (r *repository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM strategies
		WHERE user_id = $1 AND deleted_at IS NULL`

	var count int
	if err := r.db.GetContext(ctx, &count, query, ownerID); err != nil {
		return 0, fmt.Errorf("count strategies: %w", err)
	}

	return count, nil
}
