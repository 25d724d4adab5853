// AngelaMos | 2026
// service_test.go

package strategy

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvix/planvix-api/internal/core"
	"github.com/planvix/planvix-api/internal/quota"
)

type fakeRepo struct {
	inserted    []*Strategy
	latest      int
	latestErr   error
	deleteErr   error
	getResult   *Strategy
	getErr      error
	listResult  []Strategy
	countResult int
}

func (f *fakeRepo) Insert(_ context.Context, s *Strategy) error {
	s.CreatedAt = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	f.inserted = append(f.inserted, s)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, _, _ string) (*Strategy, error) {
	return f.getResult, f.getErr
}

func (f *fakeRepo) ListByOwner(
	_ context.Context,
	_ string,
	_ int,
) ([]Strategy, error) {
	return f.listResult, nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, _, _ string) error {
	return f.deleteErr
}

func (f *fakeRepo) LatestRevision(
	_ context.Context,
	_ revisionScope,
) (int, error) {
	return f.latest, f.latestErr
}

func (f *fakeRepo) CountByOwner(_ context.Context, _ string) (int, error) {
	return f.countResult, nil
}

type fakeLedger struct {
	checkDecision  *quota.Decision
	recordDecision *quota.Decision
	snapshot       *quota.Snapshot
	checkCalls     int
	recordCalls    int
}

func (f *fakeLedger) Check(
	_ context.Context,
	_, _ string,
) (*quota.Decision, error) {
	f.checkCalls++
	return f.checkDecision, nil
}

func (f *fakeLedger) CheckAndRecord(
	_ context.Context,
	_, _ string,
) (*quota.Decision, error) {
	f.recordCalls++
	return f.recordDecision, nil
}

func (f *fakeLedger) Usage(
	_ context.Context,
	_, _ string,
) (*quota.Snapshot, error) {
	return f.snapshot, nil
}

type fakeCache struct {
	docs map[string]*Document
	puts int
}

func (f *fakeCache) Get(_ context.Context, fingerprint string) (*Document, bool) {
	doc, ok := f.docs[fingerprint]
	return doc, ok
}

func (f *fakeCache) Put(_ context.Context, fingerprint string, doc *Document) {
	if f.docs == nil {
		f.docs = map[string]*Document{}
	}
	f.docs[fingerprint] = doc
	f.puts++
}

type fakeGenerator struct {
	doc   *Document
	err   error
	calls int
}

func (f *fakeGenerator) Generate(
	_ context.Context,
	_ *GenerateStrategyRequest,
) (*Document, error) {
	f.calls++
	return f.doc, f.err
}

func sampleDocument() *Document {
	return &Document{
		Overview: StrategicOverview{
			GrowthObjective:       "Double qualified newsletter signups in 90 days",
			TargetPersonaSnapshot: "Bootstrapped SaaS founders",
			PositioningAngle:      "Practical growth without ad spend",
			CompetitiveEdge:       "Operator-level depth",
		},
		Pillars: ContentPillars{
			{PillarName: "Teardowns", WhyItWorks: "Specificity earns trust"},
		},
		Calendar: ContentCalendar{
			{Day: 1, Format: "Text post", Theme: "Founder story"},
		},
		Keywords: KeywordSet{
			Primary: []string{"saas growth"},
		},
		ROI: ROIPrediction{
			EstimatedMonthlyReach: "40k-60k",
			RiskLevel:             "low",
		},
		TokenUsage: 1800,
	}
}

func admitted() *quota.Decision {
	return &quota.Decision{Used: 3, Limit: 10}
}

func rejected(scope string) *quota.Decision {
	return &quota.Decision{
		Exceeded: true,
		Scope:    scope,
		Used:     10,
		Limit:    10,
		ResetAt:  time.Date(2026, 8, 15, 16, 0, 0, 0, time.UTC),
		Message:  "Free tier burst limit (10) reached. Resets in 4h 0m",
	}
}

func newTestService(
	repo Repository,
	ledger UsageLedger,
	cache DocumentCache,
	gen Generator,
) *Service {
	svc := NewService(repo, ledger, cache, gen, slog.Default())
	svc.now = func() time.Time {
		return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestGenerateMissRecordsGeneratesAndPersists(t *testing.T) {
	repo := &fakeRepo{latestErr: core.ErrNotFound}
	ledger := &fakeLedger{checkDecision: admitted(), recordDecision: admitted()}
	cache := &fakeCache{}
	gen := &fakeGenerator{doc: sampleDocument()}
	svc := newTestService(repo, ledger, cache, gen)

	req := baseRequest()
	resp, err := svc.Generate(context.Background(), "u1", "free", req)
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.checkCalls)
	assert.Equal(t, 1, ledger.recordCalls)
	assert.Equal(t, 1, gen.calls)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, 1, cache.puts)

	record := repo.inserted[0]
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, 1, record.Revision)
	assert.Equal(t, Fingerprint(req), record.CacheKey)
	assert.Equal(t, 1800, record.TokenUsage)

	assert.False(t, resp.Cached)
	assert.Equal(t, "free", resp.Tier)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, record.ID, resp.Strategy.ID)
}

func TestGenerateCacheHitSkipsLedgerAndRepo(t *testing.T) {
	req := baseRequest()
	repo := &fakeRepo{}
	ledger := &fakeLedger{checkDecision: admitted()}
	cache := &fakeCache{docs: map[string]*Document{
		Fingerprint(req): sampleDocument(),
	}}
	gen := &fakeGenerator{}
	svc := newTestService(repo, ledger, cache, gen)

	resp, err := svc.Generate(context.Background(), "u1", "free", req)
	require.NoError(t, err)

	assert.True(t, resp.Cached)
	assert.Zero(t, resp.GenerationTime)
	assert.Equal(t, 0, ledger.recordCalls, "cache hits never consume quota")
	assert.Equal(t, 0, gen.calls)
	assert.Empty(t, repo.inserted, "cache hits never persist")
	require.NotNil(t, resp.Usage, "hits still report current usage")
	assert.Equal(t, 3, resp.Usage.Used)
}

func TestGenerateRejectedBeforeCacheLookup(t *testing.T) {
	req := baseRequest()
	repo := &fakeRepo{}
	ledger := &fakeLedger{checkDecision: rejected(quota.ScopeBurst)}
	cache := &fakeCache{docs: map[string]*Document{
		Fingerprint(req): sampleDocument(),
	}}
	gen := &fakeGenerator{}
	svc := newTestService(repo, ledger, cache, gen)

	_, err := svc.Generate(context.Background(), "u1", "free", req)

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, quota.ScopeBurst, quotaErr.Decision.Scope)
	assert.Equal(t, 0, ledger.recordCalls)
	assert.Equal(t, 0, gen.calls)
}

func TestGenerateRejectedAtRecordingUnderContention(t *testing.T) {
	// The read-only pre-check passed but a concurrent request took the
	// last slot before the atomic check-and-record ran.
	repo := &fakeRepo{}
	ledger := &fakeLedger{
		checkDecision:  admitted(),
		recordDecision: rejected(quota.ScopeBurst),
	}
	cache := &fakeCache{}
	gen := &fakeGenerator{}
	svc := newTestService(repo, ledger, cache, gen)

	_, err := svc.Generate(context.Background(), "u1", "free", baseRequest())

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 0, gen.calls, "no generation after a rejected record")
	assert.Empty(t, repo.inserted)
}

func TestGenerateFailurePersistsNothing(t *testing.T) {
	repo := &fakeRepo{}
	ledger := &fakeLedger{checkDecision: admitted(), recordDecision: admitted()}
	cache := &fakeCache{}
	gen := &fakeGenerator{err: ErrGenerationFailed}
	svc := newTestService(repo, ledger, cache, gen)

	_, err := svc.Generate(context.Background(), "u1", "free", baseRequest())

	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, 1, ledger.recordCalls, "usage is charged before generation")
	assert.Empty(t, repo.inserted)
	assert.Equal(t, 0, cache.puts)
}

func TestGenerateModeScores(t *testing.T) {
	cases := []struct {
		mode       string
		difficulty int
		confidence int
		growth     int
	}{
		{ModeConservative, 4, 85, 60},
		{ModeAggressive, 8, 70, 90},
	}

	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			repo := &fakeRepo{latestErr: core.ErrNotFound}
			ledger := &fakeLedger{
				checkDecision:  admitted(),
				recordDecision: admitted(),
			}
			svc := newTestService(
				repo, ledger, &fakeCache{}, &fakeGenerator{doc: sampleDocument()},
			)

			req := baseRequest()
			req.Mode = tc.mode

			_, err := svc.Generate(context.Background(), "u1", "free", req)
			require.NoError(t, err)

			record := repo.inserted[0]
			assert.Equal(t, tc.difficulty, record.DifficultyScore)
			assert.Equal(t, tc.confidence, record.ConfidenceScore)
			assert.Equal(t, tc.growth, record.GrowthScore)
		})
	}
}

func TestGenerateBumpsRevisionOnRegeneration(t *testing.T) {
	repo := &fakeRepo{latest: 2}
	ledger := &fakeLedger{checkDecision: admitted(), recordDecision: admitted()}
	svc := newTestService(
		repo, ledger, &fakeCache{}, &fakeGenerator{doc: sampleDocument()},
	)

	_, err := svc.Generate(context.Background(), "u1", "free", baseRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, repo.inserted[0].Revision)
}

func TestGenerateNormalizesSparseRequest(t *testing.T) {
	repo := &fakeRepo{latestErr: core.ErrNotFound}
	ledger := &fakeLedger{checkDecision: admitted(), recordDecision: admitted()}
	svc := newTestService(
		repo, ledger, &fakeCache{}, &fakeGenerator{doc: sampleDocument()},
	)

	req := &GenerateStrategyRequest{
		Goal:     "Grow my newsletter to ten thousand subscribers",
		Audience: "Indie makers and bootstrapped founders",
		Industry: "SaaS",
		Platform: "LinkedIn",
	}

	_, err := svc.Generate(context.Background(), "u1", "free", req)
	require.NoError(t, err)

	record := repo.inserted[0]
	assert.Equal(t, "Mixed Content", record.ContentType)
	assert.Equal(t, "beginner", record.Experience)
	assert.Equal(t, ModeConservative, record.Mode)
}

func TestDeleteIdempotent(t *testing.T) {
	repo := &fakeRepo{deleteErr: ErrAlreadyDeleted}
	svc := newTestService(repo, &fakeLedger{}, &fakeCache{}, &fakeGenerator{})

	resp, err := svc.Delete(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.True(t, resp.Deleted)
}

func TestDeleteMissingStrategy(t *testing.T) {
	repo := &fakeRepo{deleteErr: core.ErrNotFound}
	svc := newTestService(repo, &fakeLedger{}, &fakeCache{}, &fakeGenerator{})

	_, err := svc.Delete(context.Background(), "s1", "u1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

type countingLedger struct {
	used  int
	limit int
}

func (c *countingLedger) Check(
	_ context.Context,
	_, _ string,
) (*quota.Decision, error) {
	return &quota.Decision{
		Exceeded: c.used >= c.limit,
		Used:     c.used,
		Limit:    c.limit,
	}, nil
}

func (c *countingLedger) CheckAndRecord(
	_ context.Context,
	_, _ string,
) (*quota.Decision, error) {
	if c.used >= c.limit {
		return &quota.Decision{
			Exceeded: true,
			Used:     c.used,
			Limit:    c.limit,
		}, nil
	}
	c.used++
	return &quota.Decision{Used: c.used, Limit: c.limit}, nil
}

func (c *countingLedger) Usage(
	_ context.Context,
	_, _ string,
) (*quota.Snapshot, error) {
	return &quota.Snapshot{BurstUsed: c.used, BurstLimit: c.limit}, nil
}

func TestGenerateThenRepeatServesFromCache(t *testing.T) {
	repo := &fakeRepo{latestErr: core.ErrNotFound}
	ledger := &countingLedger{limit: 10}
	cache := &fakeCache{}
	gen := &fakeGenerator{doc: sampleDocument()}
	svc := newTestService(repo, ledger, cache, gen)

	req := &GenerateStrategyRequest{
		Goal:     "Sell premium coffee subscriptions to remote workers",
		Audience: "Remote tech workers aged 25-35",
		Industry: "F&B",
		Platform: "Instagram",
	}

	first, err := svc.Generate(context.Background(), "u1", "free", req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, first.Strategy.Revision)
	assert.Equal(t, 1, first.Usage.Used)

	second, err := svc.Generate(context.Background(), "u1", "free", req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Zero(t, second.GenerationTime)
	require.NotNil(t, second.Usage)
	assert.Equal(t, 1, second.Usage.Used)
	assert.Equal(t, 1, ledger.used, "repeat request must not consume quota")
	assert.Equal(t, 1, gen.calls)
	assert.Len(t, repo.inserted, 1)
}

func TestUsageCombinesLedgerAndRepo(t *testing.T) {
	repo := &fakeRepo{countResult: 12}
	ledger := &fakeLedger{snapshot: &quota.Snapshot{
		MonthlyUsed:  7,
		MonthlyLimit: 25,
		BurstUsed:    2,
		BurstLimit:   10,
	}}
	svc := newTestService(repo, ledger, &fakeCache{}, &fakeGenerator{})

	resp, err := svc.Usage(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.Equal(t, "free", resp.Tier)
	assert.Equal(t, 7, resp.MonthlyUsed)
	assert.Equal(t, 25, resp.MonthlyLimit)
	assert.Equal(t, 2, resp.BurstUsed)
	assert.Equal(t, 10, resp.BurstLimit)
	assert.Equal(t, 12, resp.TotalStrategies)
}
