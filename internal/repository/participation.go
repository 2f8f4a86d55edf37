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

// ErrAlreadyBooked возвращается при повторной брони той же активности.
var ErrAlreadyBooked = errors.New("already booked")

type ParticipationRepository struct {
	pool *pgxpool.Pool
}

func NewParticipationRepository(pool *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{pool: pool}
}

func (r *ParticipationRepository) Create(ctx context.Context, b *model.Booking) error {
	defer logger.DeferLogDuration("participation.Create", time.Now())()
	// Отменённая бронь может быть создана заново, подтверждённая — нет.
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO participations (id, activity_id, user_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (activity_id, user_id) DO UPDATE
		   SET status = EXCLUDED.status, created_at = EXCLUDED.created_at
		   WHERE participations.status = 'cancelled'`,
		b.ID, b.ActivityID, b.UserID, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("participationRepo.Create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyBooked
	}
	return nil
}

func (r *ParticipationRepository) Get(ctx context.Context, activityID, userID string) (*model.Booking, error) {
	defer logger.DeferLogDuration("participation.Get", time.Now())()
	b := &model.Booking{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, activity_id, user_id, status, created_at
		 FROM participations WHERE activity_id = $1 AND user_id = $2`,
		activityID, userID,
	).Scan(&b.ID, &b.ActivityID, &b.UserID, &b.Status, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("participationRepo.Get: %w", err)
	}
	return b, nil
}

// ListForUser — брони пользователя (для экрана "мои активности").
func (r *ParticipationRepository) ListForUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	defer logger.DeferLogDuration("participation.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, activity_id, user_id, status, created_at
		 FROM participations WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`,
		userID, model.BookingConfirmed)
	if err != nil {
		return nil, fmt.Errorf("participationRepo.ListForUser: %w", err)
	}
	defer rows.Close()

	var out []*model.Booking
	for rows.Next() {
		b := &model.Booking{}
		if err := rows.Scan(&b.ID, &b.ActivityID, &b.UserID, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("participationRepo.ListForUser scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("participationRepo.ListForUser rows: %w", err)
	}
	return out, nil
}

// CountForActivity — число подтверждённых участников.
func (r *ParticipationRepository) CountForActivity(ctx context.Context, activityID string) (int, error) {
	defer logger.DeferLogDuration("participation.CountForActivity", time.Now())()
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM participations WHERE activity_id = $1 AND status = $2`,
		activityID, model.BookingConfirmed,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("participationRepo.CountForActivity: %w", err)
	}
	return n, nil
}

// Cancel помечает бронь отменённой. Идемпотентна: отмена отсутствующей
// или уже отменённой брони возвращает ErrNotFound.
func (r *ParticipationRepository) Cancel(ctx context.Context, activityID, userID string) error {
	defer logger.DeferLogDuration("participation.Cancel", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE participations SET status = $1 WHERE activity_id = $2 AND user_id = $3 AND status = $4`,
		model.BookingCancelled, activityID, userID, model.BookingConfirmed)
	if err != nil {
		return fmt.Errorf("participationRepo.Cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
