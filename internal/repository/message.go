package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("message.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, activity_id, user_id, text, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ActivityID, m.UserID, m.Text, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.Create: %w", err)
	}
	return nil
}

// ListForActivity — последние limit сообщений чата активности в
// хронологическом порядке (старые первыми).
func (r *MessageRepository) ListForActivity(ctx context.Context, activityID string, limit int) ([]*model.Message, error) {
	defer logger.DeferLogDuration("message.ListForActivity", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.activity_id, m.user_id, COALESCE(u.name,''), m.text, m.created_at
		 FROM (SELECT * FROM messages WHERE activity_id = $1 ORDER BY created_at DESC LIMIT $2) m
		 LEFT JOIN users u ON u.id = m.user_id
		 ORDER BY m.created_at ASC`,
		activityID, limit)
	if err != nil {
		return nil, fmt.Errorf("messageRepo.ListForActivity: %w", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m := &model.Message{}
		if err := rows.Scan(&m.ID, &m.ActivityID, &m.UserID, &m.UserName, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("messageRepo.ListForActivity scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messageRepo.ListForActivity rows: %w", err)
	}
	return out, nil
}
