package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostgresRepository) Create(ctx context.Context, accountID, userAgent string) (*models.Session, error) {
	now := r.now()
	s := &models.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Valid:     true,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO sessions (id, account_id, valid, user_agent, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $4, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.AccountID, s.UserAgent, now); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, account_id, valid, user_agent, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.AccountID, &s.Valid, &s.UserAgent, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Invalidate is a single conditional UPDATE, so concurrent callers cannot
// interleave. updated_at only moves on the first invalidation.
func (r *PostgresRepository) Invalidate(ctx context.Context, id string) error {
	query := `
		UPDATE sessions
		SET valid = FALSE,
		    updated_at = CASE WHEN valid THEN $2 ELSE updated_at END
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, r.now())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListValid(ctx context.Context, accountID string) ([]models.Session, error) {
	query := `
		SELECT id, account_id, valid, user_agent, created_at, updated_at
		FROM sessions
		WHERE account_id = $1 AND valid
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Valid, &s.UserAgent, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) InvalidateAll(ctx context.Context, accountID string) (int64, error) {
	query := `
		UPDATE sessions
		SET valid = FALSE, updated_at = $2
		WHERE account_id = $1 AND valid
	`
	res, err := r.db.ExecContext(ctx, query, accountID, r.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

var _ Repository = (*PostgresRepository)(nil)
