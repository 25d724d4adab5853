// AngelaMos | 2026
// ledger.go

package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/planvix/planvix-api/internal/config"
)

const (
	ScopeMonthly = "monthly"
	ScopeBurst   = "burst"
)

// Decision is the outcome of a quota evaluation. When Exceeded is set, no
// usage record was appended and ResetAt tells the caller when a slot frees.
type Decision struct {
	Exceeded bool      `json:"exceeded"`
	Scope    string    `json:"scope,omitempty"`
	Used     int       `json:"used"`
	Limit    int       `json:"limit"`
	ResetAt  time.Time `json:"reset_at,omitzero"`
	Message  string    `json:"message,omitempty"`
}

// Snapshot reports current consumption across both windows without
// recording anything.
type Snapshot struct {
	MonthlyUsed  int `json:"monthly_used"`
	MonthlyLimit int `json:"monthly_limit"`
	BurstUsed    int `json:"burst_used"`
	BurstLimit   int `json:"burst_limit"`
}

// Store is the append-only usage record backend. Locked runs fn with a
// per-user mutual exclusion spanning the check and the append; the store
// passed to fn observes and participates in that critical section.
type Store interface {
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	OldestSince(
		ctx context.Context,
		userID string,
		since time.Time,
	) (*time.Time, error)
	Append(ctx context.Context, userID string, at time.Time) error
	Locked(
		ctx context.Context,
		userID string,
		fn func(ctx context.Context, s Store) error,
	) error
}

// Ledger gates strategy generation behind two independent ceilings: a
// calendar-month cap and a rolling burst-window cap. Both must hold.
type Ledger struct {
	store Store
	cfg   config.QuotaConfig
	now   func() time.Time
}

func NewLedger(store Store, cfg config.QuotaConfig) *Ledger {
	return &Ledger{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Check evaluates both ceilings without recording. Used as the cheap
// pre-cache gate; the authoritative check happens in CheckAndRecord.
func (l *Ledger) Check(
	ctx context.Context,
	userID, tier string,
) (*Decision, error) {
	return l.evaluate(ctx, l.store, userID, tier)
}

// CheckAndRecord atomically re-evaluates both ceilings and, when both pass,
// appends a usage record. The lock is held only across this span, never
// across generation.
func (l *Ledger) CheckAndRecord(
	ctx context.Context,
	userID, tier string,
) (*Decision, error) {
	var decision *Decision

	err := l.store.Locked(ctx, userID, func(ctx context.Context, s Store) error {
		d, err := l.evaluate(ctx, s, userID, tier)
		if err != nil {
			return err
		}

		if !d.Exceeded {
			if err := s.Append(ctx, userID, l.now()); err != nil {
				return fmt.Errorf("append usage record: %w", err)
			}
			d.Used++
		}

		decision = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return decision, nil
}

// Usage returns consumption in both windows without side effects.
func (l *Ledger) Usage(
	ctx context.Context,
	userID, tier string,
) (*Snapshot, error) {
	now := l.now()

	monthlyUsed, err := l.store.CountSince(ctx, userID, monthStart(now))
	if err != nil {
		return nil, fmt.Errorf("count monthly usage: %w", err)
	}

	burstUsed, err := l.store.CountSince(ctx, userID, now.Add(-l.cfg.BurstWindow))
	if err != nil {
		return nil, fmt.Errorf("count burst usage: %w", err)
	}

	return &Snapshot{
		MonthlyUsed:  monthlyUsed,
		MonthlyLimit: l.cfg.MonthlyLimit(tier),
		BurstUsed:    burstUsed,
		BurstLimit:   l.cfg.BurstLimit(tier),
	}, nil
}

// evaluate applies the monthly ceiling first, then the burst ceiling.
// Exceeding either is terminal; passing requires both.
func (l *Ledger) evaluate(
	ctx context.Context,
	s Store,
	userID, tier string,
) (*Decision, error) {
	now := l.now()

	monthlyLimit := l.cfg.MonthlyLimit(tier)
	monthlyUsed, err := s.CountSince(ctx, userID, monthStart(now))
	if err != nil {
		return nil, fmt.Errorf("count monthly usage: %w", err)
	}

	if monthlyUsed >= monthlyLimit {
		resetAt := monthStart(now).AddDate(0, 1, 0)
		return &Decision{
			Exceeded: true,
			Scope:    ScopeMonthly,
			Used:     monthlyUsed,
			Limit:    monthlyLimit,
			ResetAt:  resetAt,
			Message:  exceededMessage(tier, "monthly", monthlyLimit, resetAt, now),
		}, nil
	}

	// The burst window rolls across calendar boundaries: just after a
	// month starts it still counts prior-month records, so burst usage
	// can briefly exceed the month-to-date count.
	windowStart := now.Add(-l.cfg.BurstWindow)
	burstLimit := l.cfg.BurstLimit(tier)
	burstUsed, err := s.CountSince(ctx, userID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("count burst usage: %w", err)
	}

	if burstUsed >= burstLimit {
		resetAt := l.burstResetAt(ctx, s, userID, windowStart, now)
		return &Decision{
			Exceeded: true,
			Scope:    ScopeBurst,
			Used:     burstUsed,
			Limit:    burstLimit,
			ResetAt:  resetAt,
			Message:  exceededMessage(tier, "burst", burstLimit, resetAt, now),
		}, nil
	}

	return &Decision{
		Used:  burstUsed,
		Limit: burstLimit,
	}, nil
}

// burstResetAt is the moment the oldest in-window record ages out. A stale
// window or clock skew can place that in the past; clamp forward by one
// minute rather than reporting a nonpositive wait.
func (l *Ledger) burstResetAt(
	ctx context.Context,
	s Store,
	userID string,
	windowStart, now time.Time,
) time.Time {
	oldest, err := s.OldestSince(ctx, userID, windowStart)
	if err != nil || oldest == nil {
		return now.Add(time.Minute)
	}

	resetAt := oldest.Add(l.cfg.BurstWindow)
	if !resetAt.After(now) {
		resetAt = now.Add(time.Minute)
	}
	return resetAt
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func exceededMessage(
	tier, window string,
	limit int,
	resetAt, now time.Time,
) string {
	diff := resetAt.Sub(now)
	hours := int(diff.Hours())
	minutes := int(diff.Minutes()) % 60

	return fmt.Sprintf(
		"%s tier %s limit (%d) reached. Resets in %dh %dm",
		capitalize(tier),
		window,
		limit,
		hours,
		minutes,
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
