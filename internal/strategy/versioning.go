// AngelaMos | 2026
// versioning.go

package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/planvix/planvix-api/internal/core"
)

// revisionScope identifies the lineage a new record joins: one owner
// regenerating one (goal, audience, platform) combination.
type revisionScope struct {
	OwnerID  string
	Goal     string
	Audience string
	Platform string
}

// Versioner assigns monotonically increasing revision numbers within
// a lineage.
type Versioner struct {
	repo latestFinder
}

type latestFinder interface {
	LatestRevision(ctx context.Context, scope revisionScope) (int, error)
}

func NewVersioner(repo latestFinder) *Versioner {
	return &Versioner{repo: repo}
}

// NextRevision returns the revision for a new record in the scope.
// First record in a lineage gets 1. Records written before revision
// tracking existed carry revision 0; the first regeneration after one
// of those gets 2, treating the legacy record as the implicit first.
func (v *Versioner) NextRevision(ctx context.Context, scope revisionScope) (int, error) {
	latest, err := v.repo.LatestRevision(ctx, scope)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return 1, nil
		}
		return 0, fmt.Errorf("resolve revision: %w", err)
	}

	if latest == 0 {
		return 2, nil
	}
	return latest + 1, nil
}
