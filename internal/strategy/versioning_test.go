// AngelaMos | 2026
// versioning_test.go

package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvix/planvix-api/internal/core"
)

type stubFinder struct {
	latest int
	err    error
}

func (s *stubFinder) LatestRevision(
	_ context.Context,
	_ revisionScope,
) (int, error) {
	return s.latest, s.err
}

func testScope() revisionScope {
	return revisionScope{
		OwnerID:  "u1",
		Goal:     "Grow my newsletter to ten thousand subscribers",
		Audience: "Indie makers and bootstrapped founders",
		Platform: "LinkedIn",
	}
}

func TestNextRevisionFirstInLineage(t *testing.T) {
	v := NewVersioner(&stubFinder{err: core.ErrNotFound})

	rev, err := v.NextRevision(context.Background(), testScope())
	require.NoError(t, err)
	assert.Equal(t, 1, rev)
}

func TestNextRevisionIncrements(t *testing.T) {
	v := NewVersioner(&stubFinder{latest: 3})

	rev, err := v.NextRevision(context.Background(), testScope())
	require.NoError(t, err)
	assert.Equal(t, 4, rev)
}

func TestNextRevisionTreatsLegacyZeroAsFirst(t *testing.T) {
	v := NewVersioner(&stubFinder{latest: 0})

	rev, err := v.NextRevision(context.Background(), testScope())
	require.NoError(t, err)
	assert.Equal(t, 2, rev)
}

func TestNextRevisionPropagatesStorageErrors(t *testing.T) {
	boom := errors.New("connection reset")
	v := NewVersioner(&stubFinder{err: boom})

	_, err := v.NextRevision(context.Background(), testScope())
	assert.ErrorIs(t, err, boom)
}
