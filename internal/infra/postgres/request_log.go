package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"totem-quiz-bot/internal/domain"
)

// RequestLog stores feedback and contact requests in Postgres.
type RequestLog struct {
	pool *pgxpool.Pool
}

func NewRequestLog(pool *pgxpool.Pool) *RequestLog {
	return &RequestLog{pool: pool}
}

func (l *RequestLog) AppendFeedback(ctx context.Context, entry domain.FeedbackEntry) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO feedback (user_id, username, text, created_at) VALUES ($1, $2, $3, $4)`,
		entry.UserID, entry.Username, entry.Text, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (l *RequestLog) AppendContact(ctx context.Context, req domain.ContactRequest) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO contact_requests (id, user_id, full_name, animal_key, created_at) VALUES ($1, $2, $3, $4, $5)`,
		req.ID.String(), req.UserID, req.FullName, string(req.AnimalKey), req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact request: %w", err)
	}
	return nil
}

// CountContacts returns the number of contact requests recorded for an animal.
func (l *RequestLog) CountContacts(ctx context.Context, key domain.AnimalKey) (int, error) {
	var n int
	err := l.pool.QueryRow(ctx, `SELECT count(*) FROM contact_requests WHERE animal_key=$1`, string(key)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count contact requests: %w", err)
	}
	return n, nil
}
