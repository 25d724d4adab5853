// AngelaMos | 2026
// store.go

package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/planvix/planvix-api/internal/core"
)

// PostgresStore persists usage records in the usage_records table. Locked
// takes a per-user advisory lock inside a transaction so the count and the
// append observed by concurrent requests are serialized.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type txStore struct {
	tx core.DBTX
}

func (s *PostgresStore) CountSince(
	ctx context.Context,
	userID string,
	since time.Time,
) (int, error) {
	return countSince(ctx, s.db, userID, since)
}

func (s *PostgresStore) OldestSince(
	ctx context.Context,
	userID string,
	since time.Time,
) (*time.Time, error) {
	return oldestSince(ctx, s.db, userID, since)
}

func (s *PostgresStore) Append(
	ctx context.Context,
	userID string,
	at time.Time,
) error {
	return appendRecord(ctx, s.db, userID, at)
}

func (s *PostgresStore) Locked(
	ctx context.Context,
	userID string,
	fn func(ctx context.Context, st Store) error,
) error {
	return core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		lockQuery := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
		if _, err := tx.ExecContext(ctx, lockQuery, userID); err != nil {
			return fmt.Errorf("acquire usage lock: %w", err)
		}

		return fn(ctx, &txStore{tx: tx})
	})
}

func (s *txStore) CountSince(
	ctx context.Context,
	userID string,
	since time.Time,
) (int, error) {
	return countSince(ctx, s.tx, userID, since)
}

func (s *txStore) OldestSince(
	ctx context.Context,
	userID string,
	since time.Time,
) (*time.Time, error) {
	return oldestSince(ctx, s.tx, userID, since)
}

func (s *txStore) Append(
	ctx context.Context,
	userID string,
	at time.Time,
) error {
	return appendRecord(ctx, s.tx, userID, at)
}

func (s *txStore) Locked(
	ctx context.Context,
	userID string,
	fn func(ctx context.Context, st Store) error,
) error {
	// Already inside the critical section.
	return fn(ctx, s)
}

func countSince(
	ctx context.Context,
	db core.DBTX,
	userID string,
	since time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*) FROM usage_records
		WHERE user_id = $1 AND created_at >= $2`

	var count int
	if err := db.GetContext(ctx, &count, query, userID, since); err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}

	return count, nil
}

func oldestSince(
	ctx context.Context,
	db core.DBTX,
	userID string,
	since time.Time,
) (*time.Time, error) {
	query := `
		SELECT created_at FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
		LIMIT 1`

	var oldest time.Time
	err := db.GetContext(ctx, &oldest, query, userID, since)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oldest usage record: %w", err)
	}

	return &oldest, nil
}

func appendRecord(
	ctx context.Context,
	db core.DBTX,
	userID string,
	at time.Time,
) error {
	query := `INSERT INTO usage_records (user_id, created_at) VALUES ($1, $2)`

	if _, err := db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	return nil
}

var _ Store = (*PostgresStore)(nil)
