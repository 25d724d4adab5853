// AngelaMos | 2026
// repository_test.go

package strategy

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvix/planvix-api/internal/core"
)

// Repository behavior that lives in SQL predicates (ownership scoping,
// soft-delete visibility) needs a real database. Set TEST_DATABASE_URL
// to run; migrations are applied on first connect.
func testRepository(t *testing.T) Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d := &core.Database{DB: db}
	require.NoError(t, d.RunMigrations("../../migrations"))

	return NewRepository(db)
}

func createTestUser(t *testing.T, repo Repository) string {
	t.Helper()

	r := repo.(*repository)
	id := uuid.NewString()

	_, err := r.db.ExecContext(context.Background(), `
		INSERT INTO users (id, email, password_hash, name)
		VALUES ($1, $2, 'x', 'test user')`,
		id, fmt.Sprintf("%s@example.test", id),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = r.db.ExecContext(
			context.Background(), `DELETE FROM users WHERE id = $1`, id,
		)
	})

	return id
}

func persistedStrategy(t *testing.T, repo Repository, ownerID string) *Strategy {
	t.Helper()

	doc := sampleDocument()
	s := &Strategy{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Goal:        "Sell premium coffee subscriptions to remote workers",
		Audience:    "Remote tech workers aged 25-35",
		Industry:    "F&B",
		Platform:    "Instagram",
		ContentType: "Mixed Content",
		Experience:  "beginner",
		Mode:        ModeConservative,
		Revision:    1,
		CacheKey:    uuid.NewString(),
		Overview:    doc.Overview,
		Pillars:     doc.Pillars,
		Calendar:    doc.Calendar,
		Keywords:    doc.Keywords,
		ROI:         doc.ROI,
	}
	require.NoError(t, repo.Insert(context.Background(), s))
	return s
}

func TestRepositoryOwnershipIsolation(t *testing.T) {
	repo := testRepository(t)
	owner := createTestUser(t, repo)
	intruder := createTestUser(t, repo)

	s := persistedStrategy(t, repo, owner)

	_, err := repo.GetByID(context.Background(), s.ID, intruder)
	assert.ErrorIs(t, err, core.ErrNotFound,
		"another owner's strategy must look nonexistent")

	err = repo.SoftDelete(context.Background(), s.ID, intruder)
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := repo.GetByID(context.Background(), s.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestRepositorySoftDeleteLifecycle(t *testing.T) {
	repo := testRepository(t)
	owner := createTestUser(t, repo)

	s := persistedStrategy(t, repo, owner)

	require.NoError(t, repo.SoftDelete(context.Background(), s.ID, owner))

	err := repo.SoftDelete(context.Background(), s.ID, owner)
	assert.ErrorIs(t, err, ErrAlreadyDeleted)

	err = repo.SoftDelete(context.Background(), uuid.NewString(), owner)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.GetByID(context.Background(), s.ID, owner)
	assert.ErrorIs(t, err, core.ErrNotFound)

	listed, err := repo.ListByOwner(context.Background(), owner, 50)
	require.NoError(t, err)
	for _, item := range listed {
		assert.NotEqual(t, s.ID, item.ID,
			"deleted strategies must not appear in history")
	}
}

func TestRepositoryListScopedToOwner(t *testing.T) {
	repo := testRepository(t)
	owner := createTestUser(t, repo)
	other := createTestUser(t, repo)

	mine := persistedStrategy(t, repo, owner)
	persistedStrategy(t, repo, other)

	listed, err := repo.ListByOwner(context.Background(), owner, 50)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)
}

func TestRepositoryLatestRevisionSkipsDeleted(t *testing.T) {
	repo := testRepository(t)
	owner := createTestUser(t, repo)

	s := persistedStrategy(t, repo, owner)
	scope := revisionScope{
		OwnerID:  owner,
		Goal:     s.Goal,
		Audience: s.Audience,
		Platform: s.Platform,
	}

	latest, err := repo.LatestRevision(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 1, latest)

	require.NoError(t, repo.SoftDelete(context.Background(), s.ID, owner))

	_, err = repo.LatestRevision(context.Background(), scope)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
