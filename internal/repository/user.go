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

var ErrNotFound = errors.New("not found")

// userCols — список колонок для SELECT (порядок соответствует scanUser).
const userCols = `id, phone, COALESCE(name,''), COALESCE(bio,''), COALESCE(avatar_url,''), dob, COALESCE(pin_hash,''), is_onboarded, created_at, updated_at, disabled_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// scanUser сканирует строку в model.User (порядок соответствует userCols).
func scanUser(s interface{ Scan(dest ...any) error }, u *model.User) error {
	return s.Scan(&u.ID, &u.Phone, &u.Name, &u.Bio, &u.AvatarURL, &u.DOB, &u.PinHash, &u.IsOnboarded, &u.CreatedAt, &u.UpdatedAt, &u.DisabledAt)
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, phone, name, bio, avatar_url, dob, pin_hash, is_onboarded, created_at, updated_at, disabled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Phone, u.Name, u.Bio, u.AvatarURL, u.DOB, u.PinHash, u.IsOnboarded, u.CreatedAt, u.UpdatedAt, u.DisabledAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByPhone", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE phone = $1`, phone)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByPhone: %w", err)
	}
	return u, nil
}

// SetPin сохраняет bcrypt-хэш PIN. Пустой хэш сбрасывает PIN.
func (r *UserRepository) SetPin(ctx context.Context, userID, pinHash string) error {
	defer logger.DeferLogDuration("user.SetPin", time.Now())()
	tag, err := r.pool.Exec(ctx, `UPDATE users SET pin_hash = $1, updated_at = NOW() WHERE id = $2`, pinHash, userID)
	if err != nil {
		return fmt.Errorf("userRepo.SetPin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ProfileUpdate — частичное обновление профиля: nil-поля не трогаются.
type ProfileUpdate struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	DOB       *time.Time
}

// UpdateProfile применяет частичное обновление и возвращает свежую строку.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	defer logger.DeferLogDuration("user.UpdateProfile", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET
		   name = COALESCE($1, name),
		   bio = COALESCE($2, bio),
		   avatar_url = COALESCE($3, avatar_url),
		   dob = COALESCE($4, dob),
		   updated_at = NOW()
		 WHERE id = $5
		 RETURNING `+userCols,
		upd.Name, upd.Bio, upd.AvatarURL, upd.DOB, userID)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.UpdateProfile: %w", err)
	}
	return u, nil
}

// CompleteOnboarding записывает поля онбординга и поднимает is_onboarded.
func (r *UserRepository) CompleteOnboarding(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	defer logger.DeferLogDuration("user.CompleteOnboarding", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET
		   name = COALESCE($1, name),
		   bio = COALESCE($2, bio),
		   avatar_url = COALESCE($3, avatar_url),
		   dob = COALESCE($4, dob),
		   is_onboarded = TRUE,
		   updated_at = NOW()
		 WHERE id = $5
		 RETURNING `+userCols,
		upd.Name, upd.Bio, upd.AvatarURL, upd.DOB, userID)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.CompleteOnboarding: %w", err)
	}
	return u, nil
}

// SetDisabled выставляет/снимает disabled_at (деактивация аккаунта).
func (r *UserRepository) SetDisabled(ctx context.Context, userID string, disabled bool) error {
	defer logger.DeferLogDuration("user.SetDisabled", time.Now())()
	var err error
	if disabled {
		_, err = r.pool.Exec(ctx, `UPDATE users SET disabled_at = NOW(), updated_at = NOW() WHERE id = $1 AND disabled_at IS NULL`, userID)
	} else {
		_, err = r.pool.Exec(ctx, `UPDATE users SET disabled_at = NULL, updated_at = NOW() WHERE id = $1`, userID)
	}
	if err != nil {
		return fmt.Errorf("userRepo.SetDisabled: %w", err)
	}
	return err
}
