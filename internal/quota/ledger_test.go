// AngelaMos | 2026
// ledger_test.go

package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvix/planvix-api/internal/config"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string][]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string][]time.Time{}}
}

func (m *memoryStore) CountSince(
	_ context.Context,
	userID string,
	since time.Time,
) (int, error) {
	count := 0
	for _, at := range m.records[userID] {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) OldestSince(
	_ context.Context,
	userID string,
	since time.Time,
) (*time.Time, error) {
	var oldest *time.Time
	for _, at := range m.records[userID] {
		at := at
		if at.Before(since) {
			continue
		}
		if oldest == nil || at.Before(*oldest) {
			oldest = &at
		}
	}
	return oldest, nil
}

func (m *memoryStore) Append(
	_ context.Context,
	userID string,
	at time.Time,
) error {
	m.records[userID] = append(m.records[userID], at)
	return nil
}

func (m *memoryStore) Locked(
	ctx context.Context,
	_ string,
	fn func(ctx context.Context, s Store) error,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m)
}

func testQuotaConfig() config.QuotaConfig {
	return config.QuotaConfig{
		BurstWindow: 5 * time.Hour,
		MonthlyLimits: map[string]int{
			"free": 25,
			"pro":  250,
		},
		BurstLimits: map[string]int{
			"free": 10,
			"pro":  50,
		},
		DefaultMonthly: 25,
		DefaultBurst:   10,
	}
}

func newTestLedger(store Store, now time.Time) *Ledger {
	l := NewLedger(store, testQuotaConfig())
	l.now = func() time.Time { return now }
	return l
}

func TestCheckAllowsUnderBothCeilings(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	for i := 0; i < 9; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1", now.Add(-time.Duration(i)*time.Minute),
		))
	}

	d, err := ledger.Check(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.False(t, d.Exceeded)
	assert.Equal(t, 9, d.Used)
	assert.Equal(t, 10, d.Limit)
}

func TestCheckRejectsWhenBurstExceededMonthlyFine(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	// 10 records inside the 5h window, far below the monthly cap of 25.
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1", now.Add(-time.Duration(i)*time.Minute),
		))
	}

	d, err := ledger.Check(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.True(t, d.Exceeded)
	assert.Equal(t, ScopeBurst, d.Scope)
	assert.Equal(t, 10, d.Used)
	assert.Contains(t, d.Message, "Free tier burst limit (10) reached")
}

func TestCheckRejectsWhenMonthlyExceededBurstFine(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	// 25 records this month, all older than the burst window.
	for i := 0; i < 25; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1",
			now.Add(-10*time.Hour).Add(-time.Duration(i)*time.Minute),
		))
	}

	d, err := ledger.Check(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.True(t, d.Exceeded)
	assert.Equal(t, ScopeMonthly, d.Scope)
	assert.Equal(t, 25, d.Used)
	assert.Equal(t,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		d.ResetAt,
	)
}

func TestCheckMonthlyWindowResetsOnCalendarBoundary(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	// Saturated last month and more than a burst window ago; the new
	// month starts with a clean slate.
	for i := 0; i < 25; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1",
			time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		))
	}

	d, err := ledger.Check(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.False(t, d.Exceeded)
}

func TestBurstWindowRollsAcrossMonthBoundary(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 9, 1, 1, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	// All records landed late on Aug 31: a fresh month for the
	// calendar ceiling, but still inside the rolling 5h window.
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1",
			time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC),
		))
	}

	d, err := ledger.Check(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.True(t, d.Exceeded)
	assert.Equal(t, ScopeBurst, d.Scope)
	assert.Equal(t, 10, d.Used)
}

func TestBurstResetAtClampsToFuture(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	// Oldest in-window record is exactly window-aged, so the naive
	// reset time equals now. The decision must never report a reset
	// in the past.
	require.NoError(t, store.Append(
		context.Background(), "u1", now.Add(-5*time.Hour),
	))
	for i := 0; i < 9; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1", now.Add(-time.Duration(i)*time.Minute),
		))
	}

	d, err := ledger.Check(context.Background(), "u1", "free")
	require.NoError(t, err)
	require.True(t, d.Exceeded)
	assert.Equal(t, now.Add(time.Minute), d.ResetAt)
}

func TestCheckAndRecordAppendsOnlyWhenAdmitted(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	d, err := ledger.CheckAndRecord(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.False(t, d.Exceeded)
	assert.Equal(t, 1, d.Used)
	assert.Len(t, store.records["u1"], 1)

	for i := 0; i < 9; i++ {
		_, err := ledger.CheckAndRecord(context.Background(), "u1", "free")
		require.NoError(t, err)
	}
	assert.Len(t, store.records["u1"], 10)

	d, err = ledger.CheckAndRecord(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.True(t, d.Exceeded)
	assert.Len(t, store.records["u1"], 10, "rejected call must not append")
}

func TestCheckNeverRecords(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	for i := 0; i < 5; i++ {
		_, err := ledger.Check(context.Background(), "u1", "free")
		require.NoError(t, err)
	}

	assert.Empty(t, store.records["u1"])
}

func TestUnknownTierFallsBackToDefaults(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	d, err := ledger.Check(context.Background(), "u1", "platinum")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Limit)
}

func TestUsageSnapshot(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	ledger := newTestLedger(store, now)

	// 3 inside the burst window, 4 more earlier in the month.
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1", now.Add(-time.Hour),
		))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(
			context.Background(), "u1", now.Add(-48*time.Hour),
		))
	}

	snap, err := ledger.Usage(context.Background(), "u1", "pro")
	require.NoError(t, err)
	assert.Equal(t, 7, snap.MonthlyUsed)
	assert.Equal(t, 250, snap.MonthlyLimit)
	assert.Equal(t, 3, snap.BurstUsed)
	assert.Equal(t, 50, snap.BurstLimit)
}
