package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/drox/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushSubscription — строка таблицы push_subscriptions. Endpoint уникален
// на пользователя, повторная подписка обновляет ключи.
type PushSubscription struct {
	UserID    string
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}

type PushRepository struct {
	pool *pgxpool.Pool
}

func NewPushRepository(pool *pgxpool.Pool) *PushRepository {
	return &PushRepository{pool: pool}
}

func (r *PushRepository) Save(ctx context.Context, sub *PushSubscription) error {
	defer logger.DeferLogDuration("push.Save", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, endpoint) DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pushRepo.Save: %w", err)
	}
	return nil
}

func (r *PushRepository) ListForUser(ctx context.Context, userID string) ([]*PushSubscription, error) {
	defer logger.DeferLogDuration("push.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("pushRepo.ListForUser: %w", err)
	}
	defer rows.Close()

	var out []*PushSubscription
	for rows.Next() {
		s := &PushSubscription{}
		if err := rows.Scan(&s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pushRepo.ListForUser scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pushRepo.ListForUser rows: %w", err)
	}
	return out, nil
}

func (r *PushRepository) Delete(ctx context.Context, userID, endpoint string) error {
	defer logger.DeferLogDuration("push.Delete", time.Now())()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	if err != nil {
		return fmt.Errorf("pushRepo.Delete: %w", err)
	}
	return nil
}
