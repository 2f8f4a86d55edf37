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

const activityCols = `id, title, COALESCE(description,''), is_paid, fee, COALESCE(currency,''),
	loc_name, COALESCE(loc_address,''), loc_lat, loc_lng, images, created_by, created_at, updated_at`

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func scanActivity(s interface{ Scan(dest ...any) error }, a *model.Activity) error {
	return s.Scan(&a.ID, &a.Title, &a.Description, &a.IsPaid, &a.Fee, &a.Currency,
		&a.Location.Name, &a.Location.Address, &a.Location.Lat, &a.Location.Lng,
		&a.Images, &a.CreatedByUserID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *ActivityRepository) Create(ctx context.Context, a *model.Activity) error {
	defer logger.DeferLogDuration("activity.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activities
		   (id, title, description, is_paid, fee, currency, loc_name, loc_address, loc_lat, loc_lng, images, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.Title, a.Description, a.IsPaid, a.Fee, a.Currency,
		a.Location.Name, a.Location.Address, a.Location.Lat, a.Location.Lng,
		a.Images, a.CreatedByUserID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("activityRepo.Create: %w", err)
	}
	return nil
}

func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	defer logger.DeferLogDuration("activity.GetByID", time.Now())()
	a := &model.Activity{}
	row := r.pool.QueryRow(ctx, `SELECT `+activityCols+` FROM activities WHERE id = $1`, id)
	if err := scanActivity(row, a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("activityRepo.GetByID: %w", err)
	}
	return a, nil
}

// List возвращает ленту активностей, свежие первыми.
func (r *ActivityRepository) List(ctx context.Context, limit, offset int) ([]*model.Activity, error) {
	defer logger.DeferLogDuration("activity.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityCols+` FROM activities ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.List: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Activity, 0, limit)
	for rows.Next() {
		a := &model.Activity{}
		if err := scanActivity(rows, a); err != nil {
			return nil, fmt.Errorf("activityRepo.List scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activityRepo.List rows: %w", err)
	}
	return out, nil
}

// ListByCreator — активности, созданные пользователем.
func (r *ActivityRepository) ListByCreator(ctx context.Context, userID string) ([]*model.Activity, error) {
	defer logger.DeferLogDuration("activity.ListByCreator", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityCols+` FROM activities WHERE created_by = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.ListByCreator: %w", err)
	}
	defer rows.Close()

	var out []*model.Activity
	for rows.Next() {
		a := &model.Activity{}
		if err := scanActivity(rows, a); err != nil {
			return nil, fmt.Errorf("activityRepo.ListByCreator scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activityRepo.ListByCreator rows: %w", err)
	}
	return out, nil
}

func (r *ActivityRepository) Delete(ctx context.Context, id, createdBy string) error {
	defer logger.DeferLogDuration("activity.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1 AND created_by = $2`, id, createdBy)
	if err != nil {
		return fmt.Errorf("activityRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
