package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, s *model.RefreshSession) error {
	defer logger.DeferLogDuration("session.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, jti, token_hash, expires_at, last_seen_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.JTI, s.TokenHash, s.ExpiresAt, s.LastSeenAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.RefreshSession, error) {
	defer logger.DeferLogDuration("session.GetByID", time.Now())()
	s := &model.RefreshSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, jti, token_hash, expires_at, last_seen_at, created_at, revoked_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.JTI, &s.TokenHash, &s.ExpiresAt, &s.LastSeenAt, &s.CreatedAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}
	return s, nil
}

// Rotate заменяет jti и хэш refresh-токена после успешного обновления.
func (r *SessionRepository) Rotate(ctx context.Context, id, jti, tokenHash string, expiresAt time.Time) error {
	defer logger.DeferLogDuration("session.Rotate", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET jti = $1, token_hash = $2, expires_at = $3, last_seen_at = NOW()
		 WHERE id = $4 AND revoked_at IS NULL`,
		jti, tokenHash, expiresAt, id)
	if err != nil {
		return fmt.Errorf("sessionRepo.Rotate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("session.Revoke", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("sessionRepo.Revoke: %w", err)
	}
	return nil
}

// RevokeAllForUser гасит все сессии пользователя (реакция на повторное
// использование старого refresh-токена).
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	defer logger.DeferLogDuration("session.RevokeAllForUser", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("sessionRepo.RevokeAllForUser: %w", err)
	}
	return nil
}

// DeleteExpired чистит давно истёкшие строки, возвращает число удалённых.
func (r *SessionRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	defer logger.DeferLogDuration("session.DeleteExpired", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("sessionRepo.DeleteExpired: %w", err)
	}
	return tag.RowsAffected(), nil
}
